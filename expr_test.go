package ifd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evalNum(t *testing.T, expr string, resolve exprResolver) float64 {
	t.Helper()
	v, err := evalExpr(expr, resolve)
	require.NoError(t, err)
	f, ok := v.Float64()
	require.True(t, ok)
	return f
}

func noRefs(string) (Value, bool) { return Value{}, false }

func TestExprArithmetic(t *testing.T) {
	assert.Equal(t, float64(7), evalNum(t, "1 + 2 * 3", noRefs))
	assert.Equal(t, float64(9), evalNum(t, "(1 + 2) * 3", noRefs))
	assert.Equal(t, 2.5, evalNum(t, "5 / 2", noRefs))
	assert.Equal(t, float64(1), evalNum(t, "7 % 3", noRefs))
	assert.Equal(t, float64(-8), evalNum(t, "-2 ** 3", noRefs))
	assert.Equal(t, float64(512), evalNum(t, "2 ** 3 ** 2", noRefs), "power is right associative")
	assert.Equal(t, float64(29), evalNum(t, "0x1D", noRefs))
}

func TestExprRefs(t *testing.T) {
	resolve := func(name string) (Value, bool) {
		switch name {
		case "val":
			return List(Uint(54), Uint(59), Uint(38)), true
		case "FocalLength":
			return Float(50), true
		}
		return Value{}, false
	}

	got := evalNum(t, "$val[0] + $val[1] / 60 + $val[2] / 3600", resolve)
	assert.InDelta(t, 54.99388, got, 1e-4)

	assert.Equal(t, float64(100), evalNum(t, "$FocalLength * 2", resolve))

	_, err := evalExpr("$Missing + 1", resolve)
	assert.Error(t, err)

	_, err = evalExpr("$val[9]", resolve)
	assert.Error(t, err)
}

func TestExprTernaryAndStrings(t *testing.T) {
	resolve := func(name string) (Value, bool) {
		if name == "model" {
			return Str("EOS R5"), true
		}
		return Value{}, false
	}

	assert.Equal(t, float64(1), evalNum(t, `$model =~ "R5" ? 1 : 0`, resolve))
	assert.Equal(t, float64(0), evalNum(t, `$model =~ "R6" ? 1 : 0`, resolve))
	assert.Equal(t, float64(2), evalNum(t, `$model eq "EOS R5" ? 2 : 3`, resolve))
	assert.Equal(t, float64(3), evalNum(t, `$model ne "EOS R5" ? 2 : 3`, resolve))
	assert.Equal(t, float64(5), evalNum(t, "2 < 1 ? 4 : 5", resolve))

	v, err := evalExpr(`$model =~ "R5" ? "new" : "old"`, resolve)
	require.NoError(t, err)
	s, _ := v.Text()
	assert.Equal(t, "new", s)
}

func TestExprErrors(t *testing.T) {
	_, err := evalExpr("1 / 0", noRefs)
	assert.Error(t, err)

	_, err = evalExpr("1 +", noRefs)
	assert.Error(t, err)

	_, err = evalExpr("(1", noRefs)
	assert.Error(t, err)

	_, err = evalExpr("1 2", noRefs)
	assert.Error(t, err)
}

func TestExprIntegralCollapse(t *testing.T) {
	v, err := evalExpr("10 / 2", noRefs)
	require.NoError(t, err)
	assert.Equal(t, KindInt, v.Kind(), "integral results collapse to integers for lookup conversions")
	n, _ := v.Int64()
	assert.Equal(t, int64(5), n)
}
