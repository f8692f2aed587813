package diagnosis

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"testing"

	"agronity/agronity-backend/internal/dataset"
	"agronity/agronity-backend/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type visionFunc func(ctx context.Context, t registry.Tensor) (float64, error)

func (f visionFunc) Score(ctx context.Context, t registry.Tensor) (float64, error) {
	return f(ctx, t)
}

type memoryImages map[string][]byte

func (m memoryImages) Open(_ context.Context, name string) (io.ReadCloser, error) {
	b, ok := m[name]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func cropData() *dataset.Dataset {
	return dataset.New([]dataset.Record{
		{District: "Kolar", SoilType: "Red", Crop: "Tomato", Values: map[string]float64{
			dataset.ColProductionRate: 20, dataset.ColMandiPrice: 12,
		}},
		{District: "Nashik", SoilType: "Black", Crop: "tomato", Values: map[string]float64{
			dataset.ColProductionRate: 30, dataset.ColMandiPrice: 18,
		}},
	})
}

func solidPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func noVision() registry.Handle[registry.VisionModel] {
	return registry.Unavailable[registry.VisionModel]()
}

func withVision(f visionFunc) registry.Handle[registry.VisionModel] {
	return registry.Available[registry.VisionModel](f)
}

func TestClassifyRulesDiseased(t *testing.T) {
	c := NewClassifier(cropData(), noVision(), nil, zap.NewNop())

	res := c.Classify(context.Background(), Request{Filename: "diseased_tomato.jpg"})

	require.Equal(t, StatusSuccess, res.Status)
	require.NotNil(t, res.Assessment)
	assert.Equal(t, "Tomato", res.Crop)
	assert.Equal(t, HealthDiseased, res.HealthStatus)
	assert.Equal(t, RiskHigh, res.DiseaseRisk)
	assert.InDelta(t, 0.75, res.Confidence, 1e-9)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Contains(t, res.Recommendation, "late blight")
	require.NotNil(t, res.AvgProduction)
	require.NotNil(t, res.MandiPrice)
	assert.InDelta(t, 25.0, *res.AvgProduction, 1e-9)
	assert.InDelta(t, 15.0, *res.MandiPrice, 1e-9)
	assert.True(t, res.Diseased())
}

func TestClassifyRulesHealthyWithoutData(t *testing.T) {
	c := NewClassifier(cropData(), noVision(), nil, nil)

	res := c.Classify(context.Background(), Request{Filename: "Paddy_Field.PNG"})

	require.NotNil(t, res.Assessment)
	assert.Equal(t, "Rice", res.Crop)
	assert.Equal(t, HealthHealthy, res.HealthStatus)
	assert.Equal(t, RiskLow, res.DiseaseRisk)
	assert.InDelta(t, 0.65, res.Confidence, 1e-9)
	assert.Nil(t, res.AvgProduction)
	assert.Nil(t, res.MandiPrice)
	assert.False(t, res.Diseased())
}

func TestClassifyUnresolved(t *testing.T) {
	c := NewClassifier(cropData(), noVision(), nil, nil)

	res := c.Classify(context.Background(), Request{Filename: "xyz123.jpg"})

	assert.Equal(t, StatusUnresolved, res.Status)
	assert.Nil(t, res.Assessment)
	assert.Contains(t, res.Message, "tomato.jpg")
	assert.Equal(t, []string{
		"rice", "wheat", "tomato", "cotton", "groundnut", "sugarcane",
		"maize", "chilli", "soybean", "mustard", "potato", "onion",
	}, res.SuggestedCrops)
}

func TestClassifyMultilingualKeywords(t *testing.T) {
	c := NewClassifier(nil, noVision(), nil, nil)

	tests := map[string]string{
		"गेहूं_खेत.jpg":  "Wheat",
		"玉米-leaf.png":    "Maize",
		"வெங்காயம்.jpeg": "Onion",
		"red_pepper.jpg": "Chilli",
		"mungfali.webp":  "Groundnut",
	}
	for filename, want := range tests {
		t.Run(filename, func(t *testing.T) {
			res := c.Classify(context.Background(), Request{Filename: filename})
			require.NotNil(t, res.Assessment)
			assert.Equal(t, want, res.Crop)
		})
	}
}

func TestClassifyVisionSuccess(t *testing.T) {
	var got registry.Tensor
	model := withVision(func(_ context.Context, tensor registry.Tensor) (float64, error) {
		got = tensor
		return 0.92, nil
	})
	images := memoryImages{"rice_leaf.png": solidPNG(t, 40, 30, color.RGBA{R: 255, A: 255})}
	c := NewClassifier(cropData(), model, images, zap.NewNop())

	res := c.Classify(context.Background(), Request{Filename: "rice_leaf.png"})

	require.NotNil(t, res.Assessment)
	assert.Equal(t, SourceVision, res.Source)
	assert.Equal(t, "Rice", res.Crop)
	assert.Equal(t, HealthHealthy, res.HealthStatus)
	assert.Equal(t, RiskLow, res.DiseaseRisk)
	assert.InDelta(t, 0.92, res.Confidence, 1e-9)
	assert.Equal(t, "Plant appears healthy", res.Diagnosis)

	assert.Equal(t, InputSize, got.Height)
	assert.Equal(t, InputSize, got.Width)
	assert.Equal(t, 3, got.Channels)
	assert.InDelta(t, 1.0, got.At(64, 64, 0), 0.01)
	assert.InDelta(t, 0.0, got.At(64, 64, 1), 0.01)
}

func TestClassifyVisionUsesRequestContent(t *testing.T) {
	model := withVision(func(context.Context, registry.Tensor) (float64, error) { return 0.1, nil })
	c := NewClassifier(nil, model, nil, nil)

	res := c.Classify(context.Background(), Request{
		Filename: "upload.png",
		Content:  solidPNG(t, 8, 8, color.RGBA{G: 128, A: 255}),
	})

	require.NotNil(t, res.Assessment)
	assert.Equal(t, SourceVision, res.Source)
	assert.Empty(t, res.Crop)
	assert.Equal(t, HealthDiseased, res.HealthStatus)
	assert.Equal(t, RiskHigh, res.DiseaseRisk)
	assert.Equal(t, genericAdvisory, res.Recommendation)
}

func TestClassifyVisionFailureFallsBack(t *testing.T) {
	failing := withVision(func(context.Context, registry.Tensor) (float64, error) {
		return 0, errors.New("model server unavailable")
	})
	images := memoryImages{
		"wheat_rust.png": solidPNG(t, 4, 4, color.White),
		"cotton.jpg":     []byte("not an image"),
	}

	tests := []struct {
		name     string
		vision   registry.Handle[registry.VisionModel]
		filename string
		crop     string
	}{
		{"missing image", withVision(func(context.Context, registry.Tensor) (float64, error) { return 1, nil }), "onion.jpg", "Onion"},
		{"undecodable image", withVision(func(context.Context, registry.Tensor) (float64, error) { return 1, nil }), "cotton.jpg", "Cotton"},
		{"inference error", failing, "wheat_rust.png", "Wheat"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClassifier(cropData(), tt.vision, images, zap.NewNop())

			res := c.Classify(context.Background(), Request{Filename: tt.filename})

			assert.Equal(t, StatusSuccess, res.Status)
			require.NotNil(t, res.Assessment)
			assert.Equal(t, SourceFallback, res.Source)
			assert.Equal(t, tt.crop, res.Crop)
		})
	}
}

func TestClassifyVisionRejectsOversizedStoredImage(t *testing.T) {
	called := false
	model := withVision(func(context.Context, registry.Tensor) (float64, error) {
		called = true
		return 1, nil
	})
	img := solidPNG(t, 16, 16, color.White)
	images := memoryImages{"maize.png": img}
	c := NewClassifier(cropData(), model, images, zap.NewNop())
	c.SetMaxImageBytes(int64(len(img) - 1))

	_, err := c.load(context.Background(), Request{Filename: "maize.png"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")

	res := c.Classify(context.Background(), Request{Filename: "maize.png"})
	require.NotNil(t, res.Assessment)
	assert.Equal(t, SourceFallback, res.Source)
	assert.False(t, called)

	c.SetMaxImageBytes(int64(len(img)))
	content, err := c.load(context.Background(), Request{Filename: "maize.png"})
	require.NoError(t, err)
	assert.Equal(t, img, content)
}

func TestClassifyVisionWithoutImageStore(t *testing.T) {
	model := withVision(func(context.Context, registry.Tensor) (float64, error) { return 1, nil })
	c := NewClassifier(nil, model, nil, nil)

	res := c.Classify(context.Background(), Request{Filename: "potato_blight.jpg"})

	require.NotNil(t, res.Assessment)
	assert.Equal(t, SourceFallback, res.Source)
	assert.Equal(t, HealthDiseased, res.HealthStatus)
}

func TestClassifyCarriesCropAdvisory(t *testing.T) {
	c := NewClassifier(nil, noVision(), nil, nil)

	res := c.Classify(context.Background(), Request{Filename: "SUGARCANE_field.jpg"})

	require.NotNil(t, res.Assessment)
	assert.Contains(t, res.Recommendation, "red rot")
}

func TestCropsReturnsCopy(t *testing.T) {
	list := Crops()
	require.Len(t, list, 12)
	list[0].Name = "changed"
	assert.Equal(t, "rice", Crops()[0].Name)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(bytes.NewReader([]byte("garbage")))
	assert.Error(t, err)
}
