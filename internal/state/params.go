package state

import (
	"fmt"

	"github.com/danmuck/g2ctl/internal/live"
	"github.com/danmuck/g2ctl/internal/protocol/field"
	"github.com/danmuck/g2ctl/internal/protocol/schema"
)

// MaxVariations is the number of variations a patch stores per module.
const MaxVariations = 10

// ParamValues holds one module's parameter values per variation, each
// exposed as a property over a Data7 entry.
type ParamValues struct {
	vars  []*field.Values
	props [][]*live.Property[int]
}

// NewParamValues binds vars, a list of VarParams instances. A nil list
// yields MaxVariations empty variations.
func NewParamValues(vars []*field.Values) *ParamValues {
	if vars == nil {
		vars = make([]*field.Values, MaxVariations)
		for i := range vars {
			vars[i] = schema.VarParams.MustMake(i, []*field.Values{})
		}
	}
	pv := &ParamValues{vars: vars, props: make([][]*live.Property[int], len(vars))}
	for i, vv := range vars {
		params := vv.MustSubfields(schema.FieldParams)
		ps := make([]*live.Property[int], len(params))
		for j, d := range params {
			ps[j] = live.IntField(d, schema.FieldDatum)
		}
		pv.props[i] = ps
	}
	return pv
}

// Variations returns the number of stored variations.
func (pv *ParamValues) Variations() int { return len(pv.vars) }

// Param returns the property for one parameter of one variation.
func (pv *ParamValues) Param(variation, index int) (*live.Property[int], error) {
	if variation < 0 || variation >= len(pv.props) {
		return nil, fmt.Errorf("%w: %d of %d", ErrVariation, variation, len(pv.props))
	}
	ps := pv.props[variation]
	if index < 0 || index >= len(ps) {
		return nil, fmt.Errorf("%w: %d of %d", ErrParamIndex, index, len(ps))
	}
	return ps[index], nil
}

// VarValues lists the parameter values of one variation.
func (pv *ParamValues) VarValues(variation int) ([]int, error) {
	if variation < 0 || variation >= len(pv.props) {
		return nil, fmt.Errorf("%w: %d of %d", ErrVariation, variation, len(pv.props))
	}
	out := make([]int, len(pv.props[variation]))
	for i, p := range pv.props[variation] {
		out[i] = p.Get()
	}
	return out, nil
}

func (pv *ParamValues) AllVarValues() [][]int {
	out := make([][]int, len(pv.props))
	for i := range pv.props {
		out[i], _ = pv.VarValues(i)
	}
	return out
}

// UpdateParam applies a decoded ParamUpdate. Listeners fire only when the
// value changes.
func (pv *ParamValues) UpdateParam(update *field.Values) error {
	p, err := pv.Param(update.MustInt(schema.FieldVariation), update.MustInt(schema.FieldParam))
	if err != nil {
		return err
	}
	return p.Set(update.MustInt(schema.FieldValue))
}
