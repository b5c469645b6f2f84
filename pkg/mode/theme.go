package mode

// Theme is the display configuration derived from a mode. It is a pure
// function of the mode and carries no state of its own.
type Theme struct {
	Gradient string `json:"gradient"`
	Accent   string `json:"accent"`
	Spacing  string `json:"spacing"`
}

// ThemeFor returns the theme for a mode.
func ThemeFor(m Mode) Theme {
	switch m {
	case Morning:
		return Theme{Gradient: "linear-gradient(135deg, #fef3c7, #fde68a)", Accent: "#d97706", Spacing: "relaxed"}
	case Active:
		return Theme{Gradient: "linear-gradient(135deg, #dbeafe, #bfdbfe)", Accent: "#2563eb", Spacing: "compact"}
	default:
		return Theme{Gradient: "linear-gradient(135deg, #ede9fe, #ddd6fe)", Accent: "#7c3aed", Spacing: "relaxed"}
	}
}
