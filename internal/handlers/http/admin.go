package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/importer"
	"WooWithWasp/internal/retry"
	"WooWithWasp/internal/scheduler"
	"WooWithWasp/pkg/logging"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const maxUploadSize = 32 << 20

type toggleResponse struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type retryStatsResponse struct {
	Stats map[syncrecord.Kind]*retry.Stats `json:"stats"`
	Auto  map[syncrecord.Kind]bool         `json:"auto"`
}

type cronJob struct {
	Job     string `json:"job"`
	Enabled bool   `json:"enabled"`
}

type truncateResponse struct {
	Table   string `json:"table"`
	Deleted int64  `json:"deleted"`
}

func parseEnabled(r *http.Request) (bool, error) {
	value := r.FormValue("enabled")
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return false, errors.Errorf("bad enabled value %q", value)
	}
	return enabled, nil
}

func parseKind(r *http.Request) (syncrecord.Kind, error) {
	value := r.FormValue("kind")
	kind, ok := kindOf(value)
	if !ok {
		return "", errors.Errorf("unknown kind %q, expected %s or %s", value, KIND_ORDERS, KIND_SALES_RETURNS)
	}
	return kind, nil
}

func (h *Handler) HandlerRetryToggle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	enabled, err := parseEnabled(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := h.Retry.Toggle(r.Context(), kind, enabled); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, &toggleResponse{Name: string(kind), Enabled: enabled})
}

func (h *Handler) HandlerRetryInstant(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	kind, err := parseKind(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := h.Retry.EnqueueDistressed(context.WithoutCancel(r.Context()), kind, h.Retry.BatchSize())
	if err != nil {
		logger.Errorf("retry instant %s: %v", kind, err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) HandlerRetryStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	stats, err := h.Retry.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	response := &retryStatsResponse{Stats: stats, Auto: make(map[syncrecord.Kind]bool)}
	for _, kind := range []syncrecord.Kind{syncrecord.KindOrder, syncrecord.KindSalesReturn} {
		enabled, err := h.Retry.IsEnabled(r.Context(), kind)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		response.Auto[kind] = enabled
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) HandlerCronJobs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	jobs := make([]*cronJob, 0)
	for _, name := range h.Scheduler.Jobs() {
		enabled, err := h.Scheduler.IsEnabled(r.Context(), name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		jobs = append(jobs, &cronJob{Job: name, Enabled: enabled})
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) HandlerCronToggle(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	name := r.FormValue("job")
	enabled, err := parseEnabled(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	err = h.Scheduler.Toggle(r.Context(), name, enabled)
	if errors.Is(err, scheduler.ErrUnknownJob) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, &toggleResponse{Name: name, Enabled: enabled})
}

func (h *Handler) HandlerCronRun(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	run, err := h.Scheduler.RunNow(context.WithoutCancel(r.Context()), r.FormValue("job"))
	if errors.Is(err, scheduler.ErrUnknownJob) {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	code := http.StatusOK
	switch {
	case run.Error != "":
		code = http.StatusInternalServerError
	case run.Result != nil:
		code = run.Result.HTTPStatus()
	}
	writeJSON(w, code, run)
}

func (h *Handler) HandlerTruncate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	name := r.FormValue("table")

	var deleted int64
	var err error
	if name == TABLE_RETRY_QUEUE {
		deleted, err = h.Retry.TruncateQueue(r.Context())
	} else {
		table, ok := h.Tables[name]
		if !ok {
			writeError(w, http.StatusBadRequest, errors.Errorf("unknown table %q", name))
			return
		}
		deleted, err = table.Truncate(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	logger.Infof("таблица %s очищена, удалено %d", name, deleted)
	writeJSON(w, http.StatusOK, &truncateResponse{Table: name, Deleted: deleted})
}

// HandlerImportSalesReturns multipart: file, year, month, sheet или period вместо year/month
func (h *Handler) HandlerImportSalesReturns(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	logger.Info("Start HandlerImportSalesReturns")
	defer logger.Info("End HandlerImportSalesReturns")

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "failed ParseMultipartForm"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, importer.ErrEmptyFile)
		return
	}
	defer file.Close()
	if header.Size == 0 {
		writeError(w, http.StatusBadRequest, importer.ErrEmptyFile)
		return
	}

	req := importer.Request{Sheet: r.FormValue("sheet")}
	if period := r.FormValue("period"); period != "" {
		req.Year, req.Month, err = importer.ParsePeriod(period)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
	} else {
		req.Year, _ = strconv.Atoi(r.FormValue("year"))
		req.Month, _ = strconv.Atoi(r.FormValue("month"))
	}

	result, err := h.Importer.Import(context.WithoutCancel(r.Context()), file, req)
	if err != nil {
		logger.Warnf("импорт %s отклонен: %v", header.Filename, err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
