package matching

import "strings"

// OtherInstrument is the catalog entry that asks the participant to type the instrument name.
const OtherInstrument = "Other"

// Catalog lists the instruments offered by the registration forms, in display order.
var Catalog = []string{
	"Piano",
	"Guitar",
	"Violin",
	"Viola",
	"Cello",
	"Bass",
	"Flute",
	"Clarinet",
	"Saxophone",
	"Trumpet",
	"Trombone",
	"French Horn",
	"Drums",
	"Voice",
	"Ukulele",
	OtherInstrument,
}

var catalogIndex = func() map[string]string {
	index := make(map[string]string, len(Catalog))
	for _, name := range Catalog {
		index[foldName(name)] = name
	}
	return index
}()

// Instrument is a canonical catalog instrument or a free-text "Other" entry.
type Instrument struct {
	Name   string `json:"name"`
	Custom bool   `json:"custom"`
	key    string
}

// Key identifies the instrument for equality. Canonical and custom names never collide.
func (i Instrument) Key() string {
	if i.key != "" {
		return i.key
	}
	return instrumentKey(i.Name, i.Custom)
}

// Equal reports whether both values name the same instrument.
func (i Instrument) Equal(other Instrument) bool {
	return i.Key() == other.Key()
}

func (i Instrument) String() string {
	return i.Name
}

// ParseInstrument normalizes one instrument row. The boolean is false when the row
// contributes no instrument: a blank value, or "Other" without free text.
func ParseInstrument(value, other string) (Instrument, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Instrument{}, false
	}
	if strings.EqualFold(value, OtherInstrument) {
		text := collapseSpaces(other)
		if text == "" {
			return Instrument{}, false
		}
		return Instrument{Name: text, Custom: true, key: instrumentKey(text, true)}, true
	}

	name := collapseSpaces(value)
	if canonical, ok := catalogIndex[foldName(name)]; ok {
		name = canonical
	}
	return Instrument{Name: name, key: instrumentKey(name, false)}, true
}

// IsCatalogInstrument reports whether value is one of the offered catalog entries.
func IsCatalogInstrument(value string) bool {
	_, ok := catalogIndex[foldName(value)]
	return ok
}

func instrumentKey(name string, custom bool) string {
	if custom {
		return "other:" + foldName(name)
	}
	return "std:" + foldName(name)
}

func foldName(raw string) string {
	return strings.ToLower(collapseSpaces(raw))
}

func collapseSpaces(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}
