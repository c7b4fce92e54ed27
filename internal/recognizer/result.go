package recognizer

import (
	"encoding/json"
	"image"
	"strconv"

	"screen-state-recognizer/internal/catalog"
)

// Method names how a state was decided.
type Method string

const (
	MethodTemplate Method = "template"
	MethodOCR      Method = "ocr"
	MethodUnknown  Method = "unknown"
)

// UnknownState is the label reported when nothing was recognized.
const UnknownState = "unknown"

// Result is one of TemplateMatch, OCRMatch or Unknown.
type Result interface {
	Method() Method
	State() string
	isResult()
}

// TemplateMatch is a state accepted on visual similarity alone.
type TemplateMatch struct {
	Label      string
	Confidence float64
	Location   image.Point
	Template   string
}

// OCRMatch is a state confirmed by reading its text regions. Regions holds
// the outcome of every region of that state, matched or not.
type OCRMatch struct {
	Label   string
	Regions []RegionCheck
}

// Unknown means no state could be confirmed.
type Unknown struct{}

// RegionCheck is the outcome of reading one OCR region.
type RegionCheck struct {
	Index    int
	Region   catalog.Rect
	Text     string
	Expected []string
	Matched  bool
}

func (TemplateMatch) Method() Method { return MethodTemplate }
func (OCRMatch) Method() Method      { return MethodOCR }
func (Unknown) Method() Method       { return MethodUnknown }

func (m TemplateMatch) State() string { return m.Label }
func (m OCRMatch) State() string      { return m.Label }
func (Unknown) State() string         { return UnknownState }

func (TemplateMatch) isResult() {}
func (OCRMatch) isResult()      {}
func (Unknown) isResult()       {}

type resultJSON struct {
	Method     Method                      `json:"method"`
	State      string                      `json:"state"`
	Confidence *float64                    `json:"confidence,omitempty"`
	Template   string                      `json:"template,omitempty"`
	Location   *pointJSON                  `json:"location,omitempty"`
	OCRDetail  map[string]regionDetailJSON `json:"ocr_detail,omitempty"`
}

type pointJSON struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type regionDetailJSON struct {
	Region        catalog.Rect `json:"region"`
	ExtractedText string       `json:"extracted_text"`
	ExpectedText  []string     `json:"expected_text"`
	Matched       bool         `json:"matched"`
}

func (m TemplateMatch) MarshalJSON() ([]byte, error) {
	conf := m.Confidence
	return json.Marshal(resultJSON{
		Method:     MethodTemplate,
		State:      m.Label,
		Confidence: &conf,
		Template:   m.Template,
		Location:   &pointJSON{X: m.Location.X, Y: m.Location.Y},
	})
}

func (m OCRMatch) MarshalJSON() ([]byte, error) {
	detail := make(map[string]regionDetailJSON, len(m.Regions))
	for _, rc := range m.Regions {
		expected := rc.Expected
		if expected == nil {
			expected = []string{}
		}
		detail[strconv.Itoa(rc.Index)] = regionDetailJSON{
			Region:        rc.Region,
			ExtractedText: rc.Text,
			ExpectedText:  expected,
			Matched:       rc.Matched,
		}
	}
	return json.Marshal(resultJSON{Method: MethodOCR, State: m.Label, OCRDetail: detail})
}

func (Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{Method: MethodUnknown, State: UnknownState})
}
