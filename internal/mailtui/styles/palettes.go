package styles

// DefaultTheme is a dark palette with a warm accent for the selected thread.
var DefaultTheme = Theme{
	Name:        "default",
	BorderStyle: "rounded",
	UserPalette: append([]string(nil), UserColorPalette...),
	Base:        BaseColors{Background: "235", Foreground: "253", Muted: "244", Accent: "173", Border: "239"},
	Message:     MessageColors{Own: "180", Other: "152", System: "214"},
	Status:      StatusColors{Unread: "209", Error: "167", Success: "107"},
	Chrome:      ChromeColors{Header: "223", Footer: "246", SelectedItem: "173"},
	Borders:     BorderColors{ActivePane: "173", InactivePane: "239", Divider: "237"},
}

// HighContrastTheme trades color for legibility on limited terminals.
var HighContrastTheme = Theme{
	Name:        "high-contrast",
	BorderStyle: "sharp",
	Base:        BaseColors{Background: "16", Foreground: "231", Muted: "252", Accent: "226", Border: "231"},
	Message:     MessageColors{Own: "231", Other: "159", System: "229"},
	Status:      StatusColors{Unread: "226", Error: "196", Success: "46"},
	Chrome:      ChromeColors{Header: "231", Footer: "252", SelectedItem: "226"},
	Borders:     BorderColors{ActivePane: "226", InactivePane: "250", Divider: "248"},
}
