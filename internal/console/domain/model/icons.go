package model

// IconID identifies one entry of the closed icon set the console renders.
// The set is enumerated here instead of resolving arbitrary names at display
// time; unknown names map to IconFallback.
type IconID string

const (
	IconBuilding    IconID = "Building2"
	IconBriefcase   IconID = "Briefcase"
	IconFileText    IconID = "FileText"
	IconImage       IconID = "Image"
	IconMonitorPlay IconID = "MonitorPlay"
	IconWifi        IconID = "Wifi"
	IconCoffee      IconID = "Coffee"
	IconPrinter     IconID = "Printer"
	IconMail        IconID = "Mail"
	IconTruck       IconID = "Truck"
	IconScale       IconID = "Scale"
	IconCalculator  IconID = "Calculator"
	IconFallback    IconID = "HelpCircle"
)

var knownIcons = map[IconID]struct{}{
	IconBuilding:    {},
	IconBriefcase:   {},
	IconFileText:    {},
	IconImage:       {},
	IconMonitorPlay: {},
	IconWifi:        {},
	IconCoffee:      {},
	IconPrinter:     {},
	IconMail:        {},
	IconTruck:       {},
	IconScale:       {},
	IconCalculator:  {},
	IconFallback:    {},
}

// LookupIcon maps a stored icon name to a member of the closed set,
// falling back to IconFallback for anything unknown.
func LookupIcon(name string) IconID {
	id := IconID(name)
	if _, ok := knownIcons[id]; ok {
		return id
	}
	return IconFallback
}

// IconForContentType returns the wiki-entry icon derived from its content
// type (guide, video, image).
func IconForContentType(contentType string) IconID {
	switch contentType {
	case "video":
		return IconMonitorPlay
	case "image":
		return IconImage
	default:
		return IconFileText
	}
}
