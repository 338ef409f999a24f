package stage

import "errors"

// Normalizer rewrites one captured stream before it is stored or
// compared. The zero-configuration normalizer is the identity function.
type Normalizer func(locator, stageName, stream, text string) (string, error)

// NewNormalizer compiles the inline Lua hook into a Normalizer. The
// interactive session applies it at record and compare time with the same
// globals the normalize-output stage sets, so stored and fresh text pass
// through one function no matter which surface captured them.
func NewNormalizer(inline string) Normalizer {
	if inline == "" {
		return func(_, _, _, text string) (string, error) { return text, nil }
	}
	code := wrapLuaExpression(inline)
	return func(locator, stageName, stream, text string) (string, error) {
		ret, violation, err := runLuaSandboxed(normalizeOutputStage, locator, map[string]any{
			"locator": locator,
			"stage":   stageName,
			"stream":  stream,
			"text":    text,
		}, code, defaultSandboxLimits())
		if err != nil {
			return text, err
		}
		if violation != "" {
			return text, errors.New(violation)
		}
		if s, ok := ret.(string); ok {
			return s, nil
		}
		return text, nil
	}
}
