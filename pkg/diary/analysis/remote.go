package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cognicore/diary/pkg/diary/internalerr"
	"github.com/cognicore/diary/pkg/diary/taxonomy"
)

// Payload is the schema-checked shape of a model response. Required fields
// are guaranteed non-nil after DecodePayload succeeds.
type Payload struct {
	PrimaryCategory *string   `json:"primaryCategory"`
	SubCategory     *string   `json:"subCategory"`
	Keywords        *[]string `json:"keywords"`
	Sentiment       *string   `json:"sentiment"`
	EmotionScore    *float64  `json:"emotionScore"`
	Interpretation  *string   `json:"interpretation"`
}

// ParseRemote runs both parse stages over raw model output.
func ParseRemote(text string) (Payload, error) {
	obj, err := ExtractObject(text)
	if err != nil {
		return Payload{}, err
	}
	return DecodePayload(obj)
}

// ExtractObject returns the first well-formed JSON object found in text,
// scanning forward from each '{' so code fences, leading prose and stray
// braces before the payload are skipped.
func ExtractObject(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty response", internalerr.ErrMalformedResponse)
	}
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			continue
		}
		return string(raw), nil
	}
	return "", fmt.Errorf("%w: no JSON object found", internalerr.ErrMalformedResponse)
}

// DecodePayload decodes obj and checks the required-field set: keywords,
// primaryCategory, subCategory and emotionScore. An emotionScore of 0 is a
// legitimate value; only its absence fails.
func DecodePayload(obj string) (Payload, error) {
	var p Payload
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return Payload{}, fmt.Errorf("%w: %v", internalerr.ErrMalformedResponse, err)
	}

	var missing []string
	if p.Keywords == nil {
		missing = append(missing, "keywords")
	}
	if p.PrimaryCategory == nil || strings.TrimSpace(*p.PrimaryCategory) == "" {
		missing = append(missing, "primaryCategory")
	}
	if p.SubCategory == nil || strings.TrimSpace(*p.SubCategory) == "" {
		missing = append(missing, "subCategory")
	}
	if p.EmotionScore == nil {
		missing = append(missing, "emotionScore")
	}
	if len(missing) > 0 {
		return Payload{}, fmt.Errorf("%w: missing %s", internalerr.ErrMalformedResponse, strings.Join(missing, ", "))
	}
	return p, nil
}

// Result validates the subcategory against the taxonomy and builds a Result
// with every locally enforced invariant applied: the primary category is the
// owner of the subcategory, the score is clamped and the sentiment is
// recomputed from it. Keywords are copied verbatim; callers normalize them.
func (p Payload) Result() (Result, error) {
	sub := taxonomy.Sub(strings.TrimSpace(*p.SubCategory))
	primary, err := taxonomy.ResolvePrimary(sub)
	if err != nil {
		return Result{}, err
	}

	score := ClampScore(*p.EmotionScore)
	r := Result{
		PrimaryCategory: primary,
		SubCategory:     sub,
		Category:        sub,
		Keywords:        append([]string(nil), (*p.Keywords)...),
		Sentiment:       SentimentFor(score),
		EmotionScore:    score,
		Source:          SourceRemote,
	}
	if p.Interpretation != nil {
		r.Interpretation = strings.TrimSpace(*p.Interpretation)
	}
	return r, nil
}

// PrimaryMismatch reports whether the model named a primary category that
// does not own its subcategory. Result repairs this case.
func (p Payload) PrimaryMismatch() bool {
	if p.PrimaryCategory == nil || p.SubCategory == nil {
		return false
	}
	return !taxonomy.Valid(
		taxonomy.Primary(strings.TrimSpace(*p.PrimaryCategory)),
		taxonomy.Sub(strings.TrimSpace(*p.SubCategory)),
	)
}
