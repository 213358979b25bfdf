package trial

import "sort"

// Visual classes applied to grid elements.
const (
	ClassCorrect     = "correct"
	ClassIncorrect   = "incorrect"
	ClassDance       = "dance-animation"
	ClassPromptFade  = "prompt-fade"
	ClassBlinkBorder = "blink-border"
	ClassDragging    = "dragging"
)

// ElementKind distinguishes grid cells from drop zones.
type ElementKind int

// Element kinds.
const (
	KindCell ElementKind = iota
	KindDropZone
)

// ElementID addresses a cell or drop zone by index within the layout.
type ElementID struct {
	Kind  ElementKind
	Index int
}

// CellID returns the id of the i-th grid cell.
func CellID(i int) ElementID {
	return ElementID{Kind: KindCell, Index: i}
}

// ZoneID returns the id of the i-th drop zone.
func ZoneID(i int) ElementID {
	return ElementID{Kind: KindDropZone, Index: i}
}

// Visual is the render state of one element.
type Visual struct {
	classes map[string]struct{}
	// Color overrides the element's text and border color when set.
	Color string
}

// Has reports whether the class is present.
func (v Visual) Has(class string) bool {
	_, ok := v.classes[class]
	return ok
}

// Classes returns the applied classes in sorted order.
func (v Visual) Classes() []string {
	out := make([]string, 0, len(v.classes))
	for class := range v.classes {
		out = append(out, class)
	}
	sort.Strings(out)
	return out
}

func (v *Visual) add(class string) {
	if v.classes == nil {
		v.classes = map[string]struct{}{}
	}
	v.classes[class] = struct{}{}
}

func (v *Visual) remove(classes ...string) {
	for _, class := range classes {
		delete(v.classes, class)
	}
}

func (v Visual) clone() Visual {
	out := Visual{Color: v.Color, classes: make(map[string]struct{}, len(v.classes))}
	for class := range v.classes {
		out.classes[class] = struct{}{}
	}
	return out
}
