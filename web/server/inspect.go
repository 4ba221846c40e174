package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/philcn/RaysRenderer/pkg/denoiser"
	"github.com/philcn/RaysRenderer/pkg/svgf"
	"github.com/philcn/RaysRenderer/pkg/synth"
)

// InspectResponse represents the JSON response for pixel inspection
type InspectResponse struct {
	X               int                      `json:"x"`
	Y               int                      `json:"y"`
	Frame           int                      `json:"frame"`
	LinearZ         float32                  `json:"linearZ"`
	ZDerivative     float32                  `json:"zDerivative"`
	Normal          [3]float32               `json:"normal"`
	Motion          [2]float32               `json:"motion"`
	Signals         map[string]SignalSamples `json:"signals"`
	ReferenceSpp    int                      `json:"referenceSpp"`
	NoiseAmount     float64                  `json:"noiseAmount"`
	PanSpeed        float64                  `json:"panSpeed"`
	ReprojectedFrom [2]float32               `json:"reprojectedFrom"`
}

// SignalSamples holds the inputs of one signal at the inspected pixel
type SignalSamples struct {
	Noisy     [3]float32 `json:"noisy"`
	Reference [3]float32 `json:"reference"`
	Luminance float32    `json:"luminance"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// handleInspect renders one procedural frame and reports the G-buffer and
// signal values the denoiser sees at a pixel
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	req, err := s.parseStreamRequest(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid parameters: "+err.Error())
		return
	}

	query := r.URL.Query()

	// Parse pixel coordinates
	pixelX, err := strconv.Atoi(query.Get("x"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid x coordinate")
		return
	}
	pixelY, err := strconv.Atoi(query.Get("y"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "Invalid y coordinate")
		return
	}

	// Validate pixel coordinates
	if pixelX < 0 || pixelX >= req.Width || pixelY < 0 || pixelY >= req.Height {
		writeJSONError(w, http.StatusBadRequest, "Pixel coordinates out of bounds")
		return
	}

	frameIndex, err := parseIntParam(query, "frame", 0, 0, maxFrames)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	gen, err := synth.NewGenerator(synth.Options{
		Width:            req.Width,
		Height:           req.Height,
		NoiseAmount:      float32(req.Noise),
		PanSpeed:         float32(req.PanSpeed),
		Seed:             s.cfg.Render.Seed,
		ReferenceSamples: streamReferenceSamples,
	}, s.device)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	frame, err := gen.Render(frameIndex)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Geometry is decoded exactly as the filter decodes it
	sample := svgf.FetchSample(frame.Noisy[req.Signal], frame.GBuffer.NormalDepth, pixelX, pixelY)
	motion := frame.GBuffer.Motion.Texel(pixelX, pixelY)

	response := InspectResponse{
		X:               pixelX,
		Y:               pixelY,
		Frame:           frameIndex,
		LinearZ:         sample.LinearZ,
		ZDerivative:     sample.ZDerivative,
		Normal:          [3]float32(sample.Normal),
		Motion:          [2]float32{motion[0], motion[1]},
		Signals:         make(map[string]SignalSamples, len(denoiser.AllSignals)),
		ReferenceSpp:    streamReferenceSamples,
		NoiseAmount:     req.Noise,
		PanSpeed:        req.PanSpeed,
		ReprojectedFrom: [2]float32{float32(pixelX) + motion[0], float32(pixelY) + motion[1]},
	}
	for _, sig := range denoiser.AllSignals {
		noisy := frame.Noisy[sig].Texel(pixelX, pixelY)
		reference := frame.Reference[sig].Texel(pixelX, pixelY)
		response.Signals[sig.String()] = SignalSamples{
			Noisy:     [3]float32{noisy[0], noisy[1], noisy[2]},
			Reference: [3]float32{reference[0], reference[1], reference[2]},
			Luminance: svgf.FetchSample(frame.Noisy[sig], frame.GBuffer.NormalDepth, pixelX, pixelY).Luminance,
		}
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}
