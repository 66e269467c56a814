// Package nn is our Neural Network interface layer.
// It holds the detection data model, the preprocessing that turns an image into a model input,
// and the post processing helpers shared by the plate and face detectors.
// To load a model, use the nnload package.
package nn

import (
	"encoding/json"
	"os"
)

// NN object detection parameters
type DetectionParams struct {
	ProbabilityThreshold float32 // Value between 0 and 1. Scores that do not exceed this are discarded.
	NmsIouThreshold      float32 // Value between 0 and 1. Lower values will merge more objects together into one.
	MaxDetections        int     // Maximum number of boxes kept after NMS (0 = unlimited)
}

// ModelConfig is saved in a JSON file along with the weights of the NN model
type ModelConfig struct {
	Architecture string   `json:"architecture"` // eg "yolov8"
	Width        int      `json:"width"`        // eg 640
	Height       int      `json:"height"`       // eg 640
	Classes      []string `json:"classes"`      // eg ["plate"]
}

// Load model config from a JSON file
func LoadModelConfig(filename string) (*ModelConfig, error) {
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	config := &ModelConfig{}
	err = json.Unmarshal(b, config)
	if err != nil {
		return nil, err
	}
	return config, nil
}
