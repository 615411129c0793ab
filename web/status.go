package web

import (
	"github.com/lepinkainen/videoenhance/objecturl"
	"github.com/lepinkainen/videoenhance/video"
	"github.com/lepinkainen/videoenhance/workflow"
)

// StatusResponse is the JSON form of a workflow snapshot, polled by the upload page
type StatusResponse struct {
	Seq        uint64          `json:"seq"`
	State      workflow.State  `json:"state"`
	Progress   float64         `json:"progress"`
	Finalizing bool            `json:"finalizing"`
	File       *FileResponse   `json:"file,omitempty"`
	Error      *ErrorResponse  `json:"error,omitempty"`
	Result     *ResultResponse `json:"result,omitempty"`
}

type FileResponse struct {
	Name      string `json:"name"`
	MediaType string `json:"type"`
	Size      int64  `json:"size"`
}

type ErrorResponse struct {
	Kind    workflow.Kind `json:"kind"`
	Message string        `json:"message"`
}

type ResultResponse struct {
	BeforeURL   string              `json:"before_url"`
	AfterURL    string              `json:"after_url"`
	DownloadURL string              `json:"download_url"`
	Metadata    *MetadataResponse   `json:"metadata,omitempty"`
	Comparison  *ComparisonResponse `json:"comparison,omitempty"`
}

type MetadataResponse struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Codec           string  `json:"codec,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

type ComparisonResponse struct {
	Before        *MetadataResponse `json:"before,omitempty"`
	After         *MetadataResponse `json:"after,omitempty"`
	Upscaled      bool              `json:"upscaled"`
	FrameDistance int               `json:"frame_distance"`
}

// blobURL is the path the browser fetches a handle from
func blobURL(h *objecturl.Handle) string {
	return objecturl.BlobPath + h.ID()
}

func newStatusResponse(snap workflow.Snapshot) StatusResponse {
	resp := StatusResponse{
		Seq:        snap.Seq,
		State:      snap.State,
		Progress:   snap.Progress,
		Finalizing: snap.Finalizing,
	}
	if f := snap.File; f != nil {
		resp.File = &FileResponse{Name: f.Name, MediaType: f.MediaType, Size: f.Size}
	}
	if e := snap.Err; e != nil {
		resp.Error = &ErrorResponse{Kind: e.Kind, Message: e.Message}
	}
	if r := snap.Result; r != nil {
		resp.Result = &ResultResponse{
			BeforeURL:   blobURL(r.Before),
			AfterURL:    blobURL(r.After),
			DownloadURL: "/download",
			Metadata:    newMetadataResponse(r.Metadata),
		}
		if c := r.Comparison; c != nil {
			resp.Result.Comparison = &ComparisonResponse{
				Before:        newMetadataResponse(c.Before),
				After:         newMetadataResponse(c.After),
				Upscaled:      c.Upscaled(),
				FrameDistance: c.FrameDistance,
			}
		}
	}
	return resp
}

func newMetadataResponse(m *video.Metadata) *MetadataResponse {
	if m == nil {
		return nil
	}
	return &MetadataResponse{
		Width:           m.Width,
		Height:          m.Height,
		Codec:           m.Codec,
		DurationSeconds: m.Duration.Seconds(),
	}
}
