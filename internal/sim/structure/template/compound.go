package template

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Compound is a decoded serialized state blob.
type Compound map[string]any

func DecodeCompound(raw []byte) (Compound, error) {
	if len(raw) == 0 {
		return Compound{}, nil
	}
	var c Compound
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode blob: %w", err)
	}
	if c == nil {
		return nil, fmt.Errorf("decode blob: not an object")
	}
	return c, nil
}

func (c Compound) Clone() Compound {
	out := make(Compound, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(Compound(t).Clone())
	case Compound:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func (c Compound) Has(key string) bool {
	_, ok := c[key]
	return ok
}

func (c Compound) Float(key string) (float64, bool) { return toFloat(c[key]) }

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func (c Compound) Int(key string) (int, bool) {
	f, ok := c.Float(key)
	return int(f), ok
}

func (c Compound) String(key string) (string, bool) {
	s, ok := c[key].(string)
	return s, ok
}

func (c Compound) SetInt(key string, v int) { c[key] = v }

func (c Compound) SetString(key, v string) { c[key] = v }

// Floats reads a numeric list value.
func (c Compound) Floats(key string) ([]float64, bool) {
	raw, ok := c[key].([]any)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(raw))
	for _, e := range raw {
		f, ok := toFloat(e)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

func (c Compound) SetVec3(key string, v mgl64.Vec3) { c[key] = []any{v[0], v[1], v[2]} }

// YawPitch reads the persisted [yaw, pitch] rotation pair.
func (c Compound) YawPitch() (yaw, pitch float32) {
	if r, ok := c.Floats("Rotation"); ok && len(r) == 2 {
		return float32(r[0]), float32(r[1])
	}
	return 0, 0
}

func (c Compound) SetYawPitch(yaw, pitch float32) {
	c["Rotation"] = []any{float64(yaw), float64(pitch)}
}
