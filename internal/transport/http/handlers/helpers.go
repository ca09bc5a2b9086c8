package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ivankudzin/swapspace/internal/domain/model"
	"github.com/ivankudzin/swapspace/internal/repo"
	"github.com/ivankudzin/swapspace/internal/transport/http/dto"
	httperrors "github.com/ivankudzin/swapspace/internal/transport/http/errors"
)

const maxBodyBytes = 1 << 16

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusBadRequest, code, message)
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusUnauthorized, code, message)
}

func writeConflict(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusConflict, code, message)
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusNotFound, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusInternalServerError, code, message)
}

// writeStorageError answers 503 for transient storage failures and 500 for
// everything else.
func writeStorageError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, repo.ErrUnavailable) {
		httperrors.WriteError(w, http.StatusServiceUnavailable, "TEMP_UNAVAILABLE", "storage is temporarily unavailable")
		return
	}
	writeInternal(w, "INTERNAL_ERROR", message)
}

func parseIntOrDefault(raw string, fallback int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fallback
	}
	return value
}

func statusResponse(status model.PairStatus) dto.MatchStatusResponse {
	return dto.MatchStatusResponse{
		State: string(status.State),
		From:  status.From,
		To:    status.To,
	}
}

func matchResponse(match model.Match, viewerID int64) dto.MatchItemResponse {
	own, theirs := match.ItemsFor(viewerID)
	return dto.MatchItemResponse{
		ID:           match.ID.String(),
		TargetUserID: match.Pair().Other(viewerID),
		OwnItemID:    own,
		PeerItemID:   theirs,
		CreatedAt:    match.MatchedAt,
	}
}
