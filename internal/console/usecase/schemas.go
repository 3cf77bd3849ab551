package usecase

import "cowork-console/internal/console/domain/model"

// Collection names consumed by the console.
const (
	CollectionPartners      = "partners"
	CollectionOfficeTypes   = "officeTypes"
	CollectionValueServices = "valueServices"
	CollectionWikiItems     = "wikiItems"
	CollectionBranches      = "branches"
	CollectionAnnouncements = "announcements"
	CollectionSpaces        = "spaces"
	CollectionMembers       = "members"
)

// logoPalette is the accent pool for partner logos without an uploaded image.
var logoPalette = []string{
	"bg-blue-500",
	"bg-pink-500",
	"bg-green-500",
	"bg-purple-500",
	"bg-orange-500",
}

// businessPartnerCategories mirrors the category picker of the partner form.
var businessPartnerCategories = []string{
	"加值商務",
	"法律諮詢",
	"會計財稅",
	"行銷設計",
	"資訊科技",
	"其他",
}

var valueServiceThemes = []string{"Blue", "Purple", "Rose", "Orange", "Green", "Indigo"}

var valueServiceIcons = []string{
	string(model.IconBuilding),
	string(model.IconBriefcase),
	string(model.IconWifi),
	string(model.IconCoffee),
	string(model.IconPrinter),
	string(model.IconMail),
	string(model.IconTruck),
	string(model.IconScale),
	string(model.IconCalculator),
}

// SchemaRegistry resolves collection names to their entity schema.
type SchemaRegistry map[string]model.Schema

// Lookup returns the schema for a collection and whether it is known.
func (r SchemaRegistry) Lookup(collection string) (model.Schema, bool) {
	s, ok := r[collection]
	return s, ok
}

// Collections returns the registered collection names.
func (r SchemaRegistry) Collections() []string {
	out := make([]string, 0, len(r))
	for name := range r {
		out = append(out, name)
	}
	return out
}

// DefaultSchemas returns the entity-kind configuration of the console.
// Entity kinds differ only in this data; the draft controller and the
// synchronizer share one code path for all of them.
func DefaultSchemas() SchemaRegistry {
	return SchemaRegistry{
		CollectionPartners: {
			Collection: CollectionPartners,
			TextFields: []model.TextField{
				{Name: "name", Required: true},
				{Name: "description", Required: true},
				{Name: "website"},
			},
			EnumFields: []model.EnumField{
				{Name: "category", Options: businessPartnerCategories, Required: true},
			},
			MediaFields: []model.MediaField{
				{Name: "logoUrl", Kind: model.MediaKindImage, MaxItems: 1},
			},
			AccentField:   "logoColor",
			AccentPalette: logoPalette,
		},
		CollectionOfficeTypes: {
			Collection: CollectionOfficeTypes,
			TextFields: []model.TextField{
				{Name: "title", Required: true},
				{Name: "description", Required: true},
			},
			MediaFields: []model.MediaField{
				{Name: "images", Kind: model.MediaKindImage, Required: true, MaxItems: 6, PrimaryField: "imageUrl"},
				{Name: "videoUrls", Kind: model.MediaKindVideo, PrimaryField: "videoUrl"},
			},
		},
		CollectionValueServices: {
			Collection: CollectionValueServices,
			TextFields: []model.TextField{
				{Name: "title", Required: true},
				{Name: "description", Required: true},
				{Name: "link"},
			},
			EnumFields: []model.EnumField{
				{Name: "category", Options: []string{"加值商務", "行政支援", "專業服務"}, Required: true},
				{Name: "iconName", Options: valueServiceIcons},
				{Name: "theme", Options: valueServiceThemes},
			},
		},
		CollectionWikiItems: {
			Collection: CollectionWikiItems,
			TextFields: []model.TextField{
				{Name: "title", Required: true},
				{Name: "description"},
			},
			EnumFields: []model.EnumField{
				{Name: "category", Options: []string{"other", "device", "meeting", "network"}, Required: true},
				{Name: "contentType", Options: []string{"guide", "video", "image"}, Required: true},
			},
			MediaFields: []model.MediaField{
				{Name: "images", Kind: model.MediaKindImage},
				{Name: "videoUrls", Kind: model.MediaKindVideo},
			},
			ContentTypeField: "contentType",
			IconField:        "iconName",
		},

		// Supporting collections are maintained elsewhere; the console only
		// lists and subscribes to them.
		CollectionBranches:      {Collection: CollectionBranches, ReadOnly: true},
		CollectionAnnouncements: {Collection: CollectionAnnouncements, ReadOnly: true},
		CollectionSpaces:        {Collection: CollectionSpaces, ReadOnly: true},
		CollectionMembers:       {Collection: CollectionMembers, ReadOnly: true},
	}
}
