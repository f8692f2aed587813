package registry

import (
	"errors"
	"io/fs"
	"time"

	"go.uber.org/zap"
)

// Registry holds every model the service may use. It is built once and
// only read afterwards.
type Registry struct {
	Preprocessor Handle[Preprocessor]
	Classifier   Handle[Classifier]
	Regressor    Handle[Regressor]
	Regional     Handle[RegionalModel]
	Vision       Handle[VisionModel]
}

// Options locates the model artifacts. Empty paths leave a model
// unavailable.
type Options struct {
	PreprocessorPath string
	ClassifierPath   string
	RegressorPath    string
	RegionalPath     string
	VisionEndpoint   string
	VisionTimeout    time.Duration
}

// Availability reports which evaluation paths can run.
type Availability struct {
	Sklearn bool `json:"sklearn"`
	AgriML  bool `json:"agri_ml"`
	Vision  bool `json:"vision"`
}

// Load reads the configured artifacts. Missing or broken artifacts are
// logged and left unavailable; Load itself never fails.
func Load(opts Options, logger *zap.Logger) *Registry {
	r := &Registry{}

	if opts.PreprocessorPath != "" {
		if m, err := LoadPreprocessor(opts.PreprocessorPath); err != nil {
			logArtifactError(logger, "preprocessor", opts.PreprocessorPath, err)
		} else {
			r.Preprocessor = Available[Preprocessor](m)
		}
	}
	if opts.ClassifierPath != "" {
		if m, err := LoadClassifier(opts.ClassifierPath); err != nil {
			logArtifactError(logger, "classifier", opts.ClassifierPath, err)
		} else {
			r.Classifier = Available(m)
		}
	}
	if opts.RegressorPath != "" {
		if m, err := LoadRegressor(opts.RegressorPath); err != nil {
			logArtifactError(logger, "regressor", opts.RegressorPath, err)
		} else {
			r.Regressor = Available(m)
		}
	}
	if opts.RegionalPath != "" {
		if m, err := LoadRegionalForest(opts.RegionalPath); err != nil {
			logArtifactError(logger, "regional model", opts.RegionalPath, err)
		} else {
			r.Regional = Available[RegionalModel](m)
		}
	}
	if opts.VisionEndpoint != "" {
		r.Vision = Available[VisionModel](NewHTTPVisionModel(opts.VisionEndpoint, opts.VisionTimeout))
	}

	a := r.Availability()
	logger.Info("Model registry loaded",
		zap.Bool("sklearn", a.Sklearn),
		zap.Bool("agri_ml", a.AgriML),
		zap.Bool("vision", a.Vision))

	return r
}

// Availability summarises which paths have all their models.
func (r *Registry) Availability() Availability {
	return Availability{
		Sklearn: r.Preprocessor.IsAvailable() && r.Classifier.IsAvailable() && r.Regressor.IsAvailable(),
		AgriML:  r.Regional.IsAvailable(),
		Vision:  r.Vision.IsAvailable(),
	}
}

func logArtifactError(logger *zap.Logger, name, path string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Model artifact not found", zap.String("model", name), zap.String("path", path))
		return
	}
	logger.Warn("Failed to load model artifact", zap.String("model", name), zap.String("path", path), zap.Error(err))
}
