package graph

// KindStyle is the rendering style of one kind. It never affects assembly
// logic.
type KindStyle struct {
	Color  string  `json:"color"`
	Weight float64 `json:"weight"`
}

// StyleTable maps kinds to their rendering style.
type StyleTable map[EntityKind]KindStyle

// FallbackStyle is used for kinds missing from an injected table.
var FallbackStyle = KindStyle{Color: "#999999", Weight: 10}

// DefaultStyles returns the production palette.
func DefaultStyles() StyleTable {
	return StyleTable{
		KindStore:             {Color: "#5470c6", Weight: 40},
		KindDish:              {Color: "#91cc75", Weight: 30},
		KindBOM:               {Color: "#fac858", Weight: 25},
		KindIngredient:        {Color: "#ee6666", Weight: 20},
		KindInventorySnapshot: {Color: "#73c0de", Weight: 15},
		KindStaff:             {Color: "#3ba272", Weight: 25},
		KindWasteEvent:        {Color: "#fc8452", Weight: 20},
		KindTrainingModule:    {Color: "#9a60b4", Weight: 20},
	}
}

// Style returns the style for kind, or FallbackStyle.
func (t StyleTable) Style(kind EntityKind) KindStyle {
	if s, ok := t[kind]; ok {
		return s
	}
	return FallbackStyle
}
