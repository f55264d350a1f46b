package tracking

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	babydomain "babyhabits/internal/domain/baby"
	"babyhabits/internal/export"
	"babyhabits/internal/transport/httpserver/handler/common"
)

const (
	defaultExportDays = 30
	xlsxContentType   = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Export writes the baby's history as a spreadsheet. from and to are
// calendar days in the configured timezone, both inclusive; the default is
// the last 30 days.
func (h *Handlers) Export(w http.ResponseWriter, r *http.Request) {
	s, ok := h.authorize(w, r, "tracking.export", babydomain.ActionView)
	if !ok {
		return
	}

	from, to, err := h.exportRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"))
	if err != nil {
		common.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	history, err := h.Tracking.History(r.Context(), s.babyID, from, to.AddDate(0, 0, 1))
	if err != nil {
		common.WriteDomainError(w, h.log, "tracking.export", err, "user_id", s.user.ID, "baby_id", s.babyID)
		return
	}
	content, err := export.Workbook(history, h.location)
	if err != nil {
		h.log.InternalError("tracking.export: build workbook failed", err, "user_id", s.user.ID, "baby_id", s.babyID)
		common.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}

	filename := fmt.Sprintf("babyhabits-%s-%s.xlsx", from.Format(common.DateLayout), to.Format(common.DateLayout))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		h.log.Warn("tracking.export: write response failed", "baby_id", s.babyID, "err", err)
	}
}

func (h *Handlers) exportRange(fromValue, toValue string) (time.Time, time.Time, error) {
	now := h.now().In(h.location)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, h.location)
	parsed, err := common.ParseDateParam(toValue, h.location)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("to must be YYYY-MM-DD")
	}
	if parsed != nil {
		to = *parsed
	}

	from := to.AddDate(0, 0, -(defaultExportDays - 1))
	parsed, err = common.ParseDateParam(fromValue, h.location)
	if err != nil {
		return time.Time{}, time.Time{}, errors.New("from must be YYYY-MM-DD")
	}
	if parsed != nil {
		from = *parsed
	}

	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("from must not be after to")
	}
	return from, to, nil
}
