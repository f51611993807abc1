package advisor

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"

	"github.com/artemshloyda/rtconvert/internal/format"
	"github.com/artemshloyda/rtconvert/internal/policy"
)

// ResponseSchema - JSON Schema ответа советника.
const ResponseSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "format": {"type": "string", "enum": ["jpeg", "png", "webp"]},
    "quality": {"type": "integer", "minimum": 1, "maximum": 100},
    "width": {"type": "integer", "minimum": 1},
    "height": {"type": "integer", "minimum": 1},
    "reasoning": {"type": "string", "pattern": "\\S"}
  },
  "required": ["format", "quality", "reasoning"]
}`

var responseSchema = mustCompile(ResponseSchema)

func mustCompile(raw string) *jsonschema.Schema {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("advisor: разбор схемы: %v", err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("response.json", doc); err != nil {
		panic(fmt.Sprintf("advisor: добавление схемы: %v", err))
	}
	sch, err := c.Compile("response.json")
	if err != nil {
		panic(fmt.Sprintf("advisor: компиляция схемы: %v", err))
	}
	return sch
}

// ParseResponse разбирает и проверяет ответ советника.
// Значения вне контракта отклоняются, а не исправляются.
func ParseResponse(content string) (policy.Recommendation, error) {
	content = stripCodeFence(content)
	if content == "" {
		return policy.Recommendation{}, malformed("", errors.New("пустой ответ"))
	}

	inst, err := jsonschema.UnmarshalJSON(strings.NewReader(content))
	if err != nil {
		return policy.Recommendation{}, malformed("", fmt.Errorf("разбор JSON: %w", err))
	}
	obj, ok := inst.(map[string]any)
	if !ok {
		return policy.Recommendation{}, malformed("", errors.New("ожидается JSON-объект"))
	}

	// Регистр формата не важен, остальные значения проверяются строго
	if s, ok := obj["format"].(string); ok {
		obj["format"] = strings.ToLower(strings.TrimSpace(s))
	}

	if err := responseSchema.Validate(obj); err != nil {
		return policy.Recommendation{}, malformed(schemaField(err), err)
	}

	rec := policy.Recommendation{
		Format:    format.Format(obj["format"].(string)),
		Reasoning: strings.TrimSpace(obj["reasoning"].(string)),
	}
	if rec.Quality, err = intField(obj, "quality"); err != nil {
		return policy.Recommendation{}, err
	}
	if rec.Width, err = intField(obj, "width"); err != nil {
		return policy.Recommendation{}, err
	}
	if rec.Height, err = intField(obj, "height"); err != nil {
		return policy.Recommendation{}, err
	}
	return rec, nil
}

// CheckRecommendation проверяет рекомендацию советника по тому же контракту,
// что и ResponseSchema. Нарушения отклоняются с ErrMalformedResponse.
func CheckRecommendation(rec policy.Recommendation) error {
	switch rec.Format {
	case format.JPEG, format.PNG, format.WEBP:
	default:
		return malformed("format", fmt.Errorf("формат %q вне допустимого набора", rec.Format))
	}
	if rec.Quality < 1 || rec.Quality > 100 {
		return malformed("quality", fmt.Errorf("качество %d вне диапазона 1..100", rec.Quality))
	}
	if rec.Width < 0 {
		return malformed("width", fmt.Errorf("ширина %d меньше 1", rec.Width))
	}
	if rec.Height < 0 {
		return malformed("height", fmt.Errorf("высота %d меньше 1", rec.Height))
	}
	if strings.TrimSpace(rec.Reasoning) == "" {
		return malformed("reasoning", errors.New("пустое обоснование"))
	}
	return nil
}

// intField возвращает целое поле или 0, если поля нет.
func intField(obj map[string]any, name string) (int, error) {
	v, ok := obj[name]
	if !ok {
		return 0, nil
	}
	n, ok := v.(json.Number)
	if !ok {
		return 0, malformed(name, fmt.Errorf("ожидается число, получено %T", v))
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, malformed(name, fmt.Errorf("ожидается целое число, получено %s", n))
	}
	return int(f), nil
}

// schemaField возвращает имя поля, на котором сработала схема.
func schemaField(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return ""
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	if len(ve.InstanceLocation) > 0 {
		return ve.InstanceLocation[0]
	}
	if req, ok := ve.ErrorKind.(*kind.Required); ok && len(req.Missing) > 0 {
		return req.Missing[0]
	}
	return ""
}

// stripCodeFence убирает обрамление ```json ... ```, которое иногда добавляют модели.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
