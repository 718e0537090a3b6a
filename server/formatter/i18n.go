package formatter

import (
	"golang.org/x/text/language"
)

// Translation keys
const (
	KeyNoAlerts           = "no_alerts"
	KeyMaxItemsZero       = "max_items_zero"
	KeyIncident           = "incident"
	KeyRoad               = "road"
	KeyLocation           = "location"
	KeySeverity           = "severity"
	KeyRestriction        = "restriction"
	KeyDirection          = "direction"
	KeyPeriod             = "period"
	KeyPublished          = "published"
	KeyUpdated            = "updated"
	KeySubtype            = "subtype"
	KeyTemporaryLimit     = "temporary_limit"
	KeyLanesRestricted    = "lanes_restricted"
	KeySafetyRelated      = "safety_related"
	KeySuspended          = "suspended"
	KeyYes                = "yes"
	KeyNo                 = "no"
	KeyLink               = "link"
	KeyOpenLink           = "open_link"
	KeyShowDetails        = "show_details"
	KeyHideDetails        = "hide_details"
	KeyUnknown            = "unknown"
	KeyUntilFurtherNotice = "until_further_notice"
	KeyDismiss            = "dismiss"
	KeyDismissed          = "dismissed"
	KeyRestoreAll         = "restore_all"
	KeyMapLoading         = "map_loading"
	KeyMapFailed          = "map_failed"
	KeyDefaultTitle       = "default_title"
)

var dictionaries = map[language.Tag]map[string]string{
	language.English: {
		KeyNoAlerts:           "No incidents",
		KeyMaxItemsZero:       "Incidents exist but are not exposed to the UI. Increase max_items in the Trafikinfo SE integration options.",
		KeyIncident:           "Incident",
		KeyRoad:               "Road",
		KeyLocation:           "Location",
		KeySeverity:           "Severity",
		KeyRestriction:        "Restriction",
		KeyDirection:          "Direction",
		KeyPeriod:             "Period",
		KeyPublished:          "Published",
		KeyUpdated:            "Updated",
		KeySubtype:            "Type",
		KeyTemporaryLimit:     "Temporary speed limit",
		KeyLanesRestricted:    "Lanes restricted",
		KeySafetyRelated:      "Safety related",
		KeySuspended:          "Suspended",
		KeyYes:                "Yes",
		KeyNo:                 "No",
		KeyLink:               "Link",
		KeyOpenLink:           "Open",
		KeyShowDetails:        "Show details",
		KeyHideDetails:        "Hide details",
		KeyUnknown:            "Unknown",
		KeyUntilFurtherNotice: "Until further notice",
		KeyDismiss:            "Dismiss",
		KeyDismissed:          "Dismissed",
		KeyRestoreAll:         "Restore all",
		KeyMapLoading:         "Loading map…",
		KeyMapFailed:          "The map could not be loaded",
		KeyDefaultTitle:       "Trafikinfo",
	},
	language.Swedish: {
		KeyNoAlerts:           "Inga olyckor",
		KeyMaxItemsZero:       "Olyckor finns men listas inte i sensorn. Höj max_items i Trafikinfo SE-integrationens inställningar.",
		KeyIncident:           "Olycka",
		KeyRoad:               "Väg",
		KeyLocation:           "Plats",
		KeySeverity:           "Allvarlighetsgrad",
		KeyRestriction:        "Restriktion",
		KeyDirection:          "Riktning",
		KeyPeriod:             "Period",
		KeyPublished:          "Publicerad",
		KeyUpdated:            "Uppdaterad",
		KeySubtype:            "Typ",
		KeyTemporaryLimit:     "Tillfällig hastighet",
		KeyLanesRestricted:    "Avstängda körfält",
		KeySafetyRelated:      "Säkerhetsrelaterat",
		KeySuspended:          "Avstängd",
		KeyYes:                "Ja",
		KeyNo:                 "Nej",
		KeyLink:               "Länk",
		KeyOpenLink:           "Öppna",
		KeyShowDetails:        "Visa detaljer",
		KeyHideDetails:        "Dölj detaljer",
		KeyUnknown:            "Okänt",
		KeyUntilFurtherNotice: "Tills vidare",
		KeyDismiss:            "Dölj",
		KeyDismissed:          "Dolda",
		KeyRestoreAll:         "Återställ alla",
		KeyMapLoading:         "Laddar karta…",
		KeyMapFailed:          "Kartan kunde inte laddas",
		KeyDefaultTitle:       "Trafikinfo",
	},
}

// Supported lists the languages with a dictionary. The first entry is the fallback.
var Supported = []language.Tag{language.English, language.Swedish}

var matcher = language.NewMatcher(Supported)

// Translator resolves user-facing strings for one language.
type Translator struct {
	tag language.Tag
}

// NewTranslator returns a Translator for the best supported match of locale, e.g. "sv-SE".
// Unknown or empty locales resolve to English.
func NewTranslator(locale string) Translator {
	_, index := language.MatchStrings(matcher, locale)
	return Translator{tag: Supported[index]}
}

// Tag returns the resolved language.
func (t Translator) Tag() language.Tag {
	if t.tag == language.Und {
		return language.English
	}
	return t.tag
}

// T returns the translation of key. Keys missing from the language fall back to English, and
// unknown keys are returned as is.
func (t Translator) T(key string) string {
	if s, ok := dictionaries[t.Tag()][key]; ok {
		return s
	}
	if s, ok := dictionaries[language.English][key]; ok {
		return s
	}
	return key
}
