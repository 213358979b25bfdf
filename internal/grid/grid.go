// Package grid builds trial layouts from the tag catalog.
package grid

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/verte-zerg/tuigrid/internal/catalog"
	"github.com/verte-zerg/tuigrid/internal/model"
)

// HiddenLabel is shown on drop zones whose tag is not visible.
const HiddenLabel = "?"

// Builder produces randomized grids.
type Builder struct {
	rnd *rand.Rand
}

// New returns a Builder seeded with the current time.
func New() *Builder {
	return NewWithSeed(time.Now().UnixNano())
}

// NewWithSeed returns a deterministic Builder.
func NewWithSeed(seed int64) *Builder {
	return &Builder{rnd: rand.New(rand.NewSource(seed))}
}

// Spec describes the grid to build.
type Spec struct {
	SelectedTags []string
	VisibleTags  []string
	Rows         int
	Cols         int
}

// Build picks one image per selected tag, fills the remaining slots with
// distractors carrying none of the selected tags, and shuffles the result.
func (b *Builder) Build(cat catalog.Catalog, spec Spec) (model.Layout, error) {
	if spec.Rows <= 0 || spec.Cols <= 0 {
		return model.Layout{}, fmt.Errorf("grid must have at least one row and column")
	}
	if len(spec.SelectedTags) == 0 {
		return model.Layout{}, fmt.Errorf("at least one target tag is required")
	}
	for _, tag := range spec.SelectedTags {
		if !cat.Contains(tag) {
			return model.Layout{}, fmt.Errorf("tag %q not found in catalog", tag)
		}
	}

	chosen := b.pickTargets(cat, spec.SelectedTags)
	if len(chosen) < len(spec.SelectedTags) {
		return model.Layout{}, fmt.Errorf("not enough unique images for the selected targets: found %d images for %d targets", len(chosen), len(spec.SelectedTags))
	}
	remaining := spec.Rows*spec.Cols - len(chosen)
	chosen = append(chosen, b.pickDistractors(cat, chosen, spec.SelectedTags, remaining)...)
	b.rnd.Shuffle(len(chosen), func(i, j int) {
		chosen[i], chosen[j] = chosen[j], chosen[i]
	})

	selected := toSet(spec.SelectedTags)
	layout := model.Layout{Rows: spec.Rows, Cols: spec.Cols}
	for _, entry := range chosen {
		tags := entry.AllTags()
		layout.Cells = append(layout.Cells, model.Cell{
			Path:    entry.Filename,
			Tags:    tags,
			Correct: anyIn(tags, selected),
		})
	}
	visible := toSet(spec.VisibleTags)
	for _, tag := range spec.SelectedTags {
		label := HiddenLabel
		if _, ok := visible[tag]; ok {
			label = tag
		}
		layout.DropZones = append(layout.DropZones, model.DropZone{Label: label, Tags: []string{tag}})
	}
	return layout, nil
}

func (b *Builder) pickTargets(cat catalog.Catalog, tags []string) []catalog.Entry {
	used := map[string]struct{}{}
	var out []catalog.Entry
	for _, tag := range tags {
		var matches []catalog.Entry
		for _, e := range cat.Entries {
			if _, ok := used[e.Filename]; ok {
				continue
			}
			if e.HasTag(tag) {
				matches = append(matches, e)
			}
		}
		if len(matches) == 0 {
			continue
		}
		pick := matches[b.rnd.Intn(len(matches))]
		used[pick.Filename] = struct{}{}
		out = append(out, pick)
	}
	return out
}

func (b *Builder) pickDistractors(cat catalog.Catalog, exclude []catalog.Entry, excludeTags []string, count int) []catalog.Entry {
	if count <= 0 {
		return nil
	}
	excluded := map[string]struct{}{}
	for _, e := range exclude {
		excluded[e.Filename] = struct{}{}
	}
	var available []catalog.Entry
	for _, e := range cat.Entries {
		if _, ok := excluded[e.Filename]; ok {
			continue
		}
		if anyIn(e.AllTags(), toSet(excludeTags)) {
			continue
		}
		available = append(available, e)
	}
	b.rnd.Shuffle(len(available), func(i, j int) {
		available[i], available[j] = available[j], available[i]
	})
	if count > len(available) {
		count = len(available)
	}
	return available[:count]
}

func toSet(values []string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}

func anyIn(tags []string, set map[string]struct{}) bool {
	for _, t := range tags {
		if _, ok := set[t]; ok {
			return true
		}
	}
	return false
}
