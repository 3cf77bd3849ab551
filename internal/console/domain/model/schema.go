package model

// MediaKind selects the storage namespace a media field's files land in.
type MediaKind string

const (
	MediaKindImage MediaKind = "image"
	MediaKindVideo MediaKind = "video"
)

// Namespace returns the object-store key prefix for the kind.
func (k MediaKind) Namespace() string {
	if k == MediaKindVideo {
		return "videos"
	}
	return "uploads"
}

// TextField describes one free-text field of an entity kind.
type TextField struct {
	Name     string
	Required bool
	Default  string
}

// EnumField describes a field restricted to a fixed option list. The first
// option is the default for new drafts.
type EnumField struct {
	Name     string
	Options  []string
	Required bool
}

// Default returns the option new drafts start with.
func (f EnumField) Default() string {
	if len(f.Options) == 0 {
		return ""
	}
	return f.Options[0]
}

// Contains reports whether v is one of the field's options.
func (f EnumField) Contains(v string) bool {
	for _, o := range f.Options {
		if o == v {
			return true
		}
	}
	return false
}

// MediaField describes one ordered media-URL list of an entity kind.
// PrimaryField, when set, names the scalar field that mirrors the list entry
// at the primary index (the "cover" item).
type MediaField struct {
	Name         string
	Kind         MediaKind
	Required     bool
	MaxItems     int
	PrimaryField string
}

// HasPrimary reports whether the list carries a cover pointer.
func (f MediaField) HasPrimary() bool { return f.PrimaryField != "" }

// Schema is the configuration of one entity kind: which collection it
// persists to and which fields a draft of it carries. Entity kinds differ
// only in schema data, never in code paths.
type Schema struct {
	Collection  string
	TextFields  []TextField
	EnumFields  []EnumField
	MediaFields []MediaField

	// AccentField, when set, names a display field assigned a random value
	// from AccentPalette once per editing session.
	AccentField   string
	AccentPalette []string

	// ContentTypeField and IconField, when both set, derive the stored icon
	// name from the content-type enum at submission time.
	ContentTypeField string
	IconField        string

	// ReadOnly collections are list/subscribe only; upsert and remove are
	// rejected.
	ReadOnly bool
}

// MediaFieldByName returns the media field definition and whether it exists.
func (s Schema) MediaFieldByName(name string) (MediaField, bool) {
	for _, f := range s.MediaFields {
		if f.Name == name {
			return f, true
		}
	}
	return MediaField{}, false
}

// EnumFieldByName returns the enum field definition and whether it exists.
func (s Schema) EnumFieldByName(name string) (EnumField, bool) {
	for _, f := range s.EnumFields {
		if f.Name == name {
			return f, true
		}
	}
	return EnumField{}, false
}
