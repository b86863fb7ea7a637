package ifd_test

import (
	"testing"

	"github.com/mdouchement/ifd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gpsEntries() []ifd.Entry {
	return []ifd.Entry{
		{
			Group: "GPS", Name: "GPSLatitudeRef",
			Value: ifd.Str("S"),
		},
		{
			Group: "GPS", Name: "GPSLatitude",
			Value: ifd.List(ifd.Rat(54, 1), ifd.Rat(59, 1), ifd.Rat(5784, 100)),
		},
		{
			Group: "GPS", Name: "GPSLongitudeRef",
			Value: ifd.Str("W"),
		},
		{
			Group: "GPS", Name: "GPSLongitude",
			Value: ifd.List(ifd.Rat(73, 1), ifd.Rat(58, 1), ifd.Rat(1500, 100)),
		},
	}
}

func latDef() *ifd.CompositeDef {
	return &ifd.CompositeDef{
		Name:    "Latitude",
		Require: []string{"GPSLatitude", "GPSLatitudeRef"},
		Compute: "gpsLatitude",
	}
}

func lonDef() *ifd.CompositeDef {
	return &ifd.CompositeDef{
		Name:    "Longitude",
		Require: []string{"GPSLongitude", "GPSLongitudeRef"},
		Compute: "gpsLongitude",
	}
}

func posDef() *ifd.CompositeDef {
	return &ifd.CompositeDef{
		Name:    "GPSPosition",
		Require: []string{"Latitude", "Longitude"},
		Compute: "gpsPosition",
	}
}

func TestCompositeGPSLatitude(t *testing.T) {
	reg := ifd.RegisterStandardComputes(ifd.NewCompositeRegistry()).Define(latDef())

	x := ifd.NewExtractor(ifd.Options{})
	out, warns := x.ResolveComposites(gpsEntries(), reg)
	assert.Empty(t, warns)
	require.Len(t, out, 1)

	assert.Equal(t, "Composite", out[0].Group)
	assert.Equal(t, "Latitude", out[0].Name)
	f, ok := out[0].Logical.Float64()
	require.True(t, ok)
	assert.InDelta(t, -54.9994, f, 1e-4, "southern hemisphere yields negative degrees")
}

func TestCompositeChained(t *testing.T) {
	// GPSPosition depends on two other composites; it must build on a
	// later pass once they exist.
	reg := ifd.RegisterStandardComputes(ifd.NewCompositeRegistry()).
		Define(posDef()).
		Define(latDef()).
		Define(lonDef())

	x := ifd.NewExtractor(ifd.Options{})
	out, warns := x.ResolveComposites(gpsEntries(), reg)
	assert.Empty(t, warns)
	require.Len(t, out, 3)

	byName := map[string]ifd.Entry{}
	for _, e := range out {
		byName[e.Name] = e
	}
	pos, ok := byName["GPSPosition"]
	require.True(t, ok)
	s, _ := pos.Logical.Text()
	assert.Contains(t, s, "-54.999")
	assert.Contains(t, s, "-73.97")
}

func TestCompositeDeclarationOrderIndependent(t *testing.T) {
	orders := [][]*ifd.CompositeDef{
		{latDef(), lonDef(), posDef()},
		{posDef(), lonDef(), latDef()},
		{lonDef(), posDef(), latDef()},
	}

	var results []map[string]string
	for _, defs := range orders {
		reg := ifd.RegisterStandardComputes(ifd.NewCompositeRegistry())
		for _, def := range defs {
			reg.Define(def)
		}
		x := ifd.NewExtractor(ifd.Options{})
		out, warns := x.ResolveComposites(gpsEntries(), reg)
		assert.Empty(t, warns)

		m := map[string]string{}
		for _, e := range out {
			m[e.Name] = e.Display
		}
		results = append(results, m)
	}

	assert.Equal(t, results[0], results[1])
	assert.Equal(t, results[0], results[2])
}

func TestCompositeCycleDetected(t *testing.T) {
	reg := ifd.NewCompositeRegistry().
		Define(&ifd.CompositeDef{Name: "A", Require: []string{"B"}, Compute: "id"}).
		Define(&ifd.CompositeDef{Name: "B", Require: []string{"A"}, Compute: "id"}).
		Register("id", func(deps map[string]ifd.Value) (ifd.Value, bool) {
			return ifd.Uint(1), true
		})

	x := ifd.NewExtractor(ifd.Options{})
	out, warns := x.ResolveComposites(nil, reg)
	assert.Empty(t, out, "cyclic composites are omitted, never looped")
	require.Len(t, warns, 2)
	for _, warn := range warns {
		assert.Equal(t, ifd.WarnComposite, warn.Code)
	}
}

func TestCompositeDesiredDoesNotBlock(t *testing.T) {
	reg := ifd.RegisterStandardComputes(ifd.NewCompositeRegistry()).
		Define(&ifd.CompositeDef{
			Name:    "ImageSize",
			Require: []string{"ImageWidth", "ImageHeight"},
			Desire:  []string{"RawImageCroppedSize"},
			Compute: "imageSize",
		})

	entries := []ifd.Entry{
		{Group: "EXIF", Name: "ImageWidth", Value: ifd.Uint(6000)},
		{Group: "EXIF", Name: "ImageHeight", Value: ifd.Uint(4000)},
	}

	x := ifd.NewExtractor(ifd.Options{})
	out, warns := x.ResolveComposites(entries, reg)
	assert.Empty(t, warns)
	require.Len(t, out, 1)
	s, _ := out[0].Logical.Text()
	assert.Equal(t, "6000x4000", s)
}

func TestCompositeMissingRequirement(t *testing.T) {
	reg := ifd.RegisterStandardComputes(ifd.NewCompositeRegistry()).Define(latDef())

	x := ifd.NewExtractor(ifd.Options{})
	out, warns := x.ResolveComposites(nil, reg)
	assert.Empty(t, out)
	require.Len(t, warns, 1)
	assert.Equal(t, ifd.WarnComposite, warns[0].Code)
}

func TestCompositeComputedAtMostOnce(t *testing.T) {
	calls := 0
	reg := ifd.NewCompositeRegistry().
		Define(&ifd.CompositeDef{Name: "Counter", Compute: "count"}).
		Define(&ifd.CompositeDef{Name: "Dependent", Require: []string{"Counter"}, Compute: "count"}).
		Register("count", func(deps map[string]ifd.Value) (ifd.Value, bool) {
			calls++
			return ifd.Uint(uint64(calls)), true
		})

	x := ifd.NewExtractor(ifd.Options{})
	out, warns := x.ResolveComposites(nil, reg)
	assert.Empty(t, warns)
	assert.Len(t, out, 2)
	assert.Equal(t, 2, calls, "each composite computes exactly once")
}
