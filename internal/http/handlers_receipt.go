package http

import (
	"net/http"

	"budgie/internal/log"
)

// handleScanReceipt runs the receipt pipeline on an uploaded image. A failed
// run still returns whatever OCR text was recovered so the client can fall
// back to manual entry.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	if s.receipts == nil {
		ErrorResponse(http.StatusServiceUnavailable, "receipt scanning is not configured").Write(w)
		return
	}
	image, err := readImage(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.receipts.Scan(r.Context(), userID(r), image)
	if err != nil {
		if res == nil || res.Result == nil {
			writeError(w, r, err)
			return
		}
		status, msg := errorStatus(err)
		log.FromContext(r.Context()).WarnContext(r.Context(), "Receipt scan failed",
			log.FieldScanID, res.ScanID,
			log.FieldError, err.Error(),
			log.FieldStatusCode, status)
		view := scanJSON(res)
		view.Error = msg
		NewJSONResponse().Status(status).Body(view).Write(w)
		return
	}

	status := http.StatusOK
	if res.Changed() && !res.Duplicate {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Body(scanJSON(res)).Write(w)
}
