package http

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"WooWithWasp/internal/database/model/syncrecord"
	"WooWithWasp/internal/importer"
	"WooWithWasp/internal/retry"
	"WooWithWasp/internal/scheduler"
	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/telegram"
	"WooWithWasp/internal/version"
	"WooWithWasp/internal/webhook"
	"WooWithWasp/pkg/logging"

	"github.com/julienschmidt/httprouter"
)

const (
	KIND_ORDERS        = "orders"
	KIND_SALES_RETURNS = "sales-returns"
	TABLE_RETRY_QUEUE  = "retry-queue"
)

// Handler REST и админские обработчики сервиса
type Handler struct {
	Pipelines map[string]sync.Pipeline
	Tables    map[string]*syncrecord.Table
	Retry     *retry.Service
	Scheduler *scheduler.Scheduler
	Importer  *importer.Importer
	Webhook   *webhook.Ingester
	Notifier  telegram.Notifier
	Token     string
}

// Router маршруты: этапы синхронизации, вебхук заказа, /admin/* под bearer токеном
func (h *Handler) Router() *httprouter.Router {
	router := httprouter.New()

	router.GET("/", h.HandlerVersion)

	for _, kind := range []string{KIND_ORDERS, KIND_SALES_RETURNS} {
		p, ok := h.Pipelines[kind]
		if !ok {
			continue
		}
		router.GET("/prepare-"+kind, h.HandlerBatch("prepare-"+kind, p.Prepare))
		router.GET("/import-"+kind, h.HandlerBatch("import-"+kind, p.Import))
		router.GET("/remove-completed-"+kind, h.HandlerBatch("remove-completed-"+kind, p.RemoveCompleted))
		router.GET("/"+kind+"-status", h.HandlerStatus(p))
	}

	router.POST("/webhook/order", h.HandlerWebhookOrder)

	router.POST("/admin/retry/toggle", h.auth(h.HandlerRetryToggle))
	router.POST("/admin/retry/instant", h.auth(h.HandlerRetryInstant))
	router.GET("/admin/retry/stats", h.auth(h.HandlerRetryStats))
	router.GET("/admin/cron/jobs", h.auth(h.HandlerCronJobs))
	router.POST("/admin/cron/toggle", h.auth(h.HandlerCronToggle))
	router.POST("/admin/cron/run", h.auth(h.HandlerCronRun))
	router.POST("/admin/truncate", h.auth(h.HandlerTruncate))
	router.POST("/admin/import/sales-returns", h.auth(h.HandlerImportSalesReturns))

	return router
}

func (h *Handler) HandlerVersion(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	v := version.GetVersion()
	_, err := fmt.Fprintf(w, "Version %s", v.String())
	if err != nil {
		logger.Errorf("failed to send response, error: %v", err)
	}
}

type message struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	logger := logging.GetLogger()
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("failed to send response, error: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, &message{Message: err.Error()})
}

func (h *Handler) auth(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		logger := logging.GetLogger()
		if h.Token == "" {
			writeJSON(w, http.StatusForbidden, &message{Message: "admin token is not configured"})
			return
		}
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.Token)) != 1 {
			logger.Warnf("неверный токен %s %s от %s", r.Method, r.URL.Path, r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, &message{Message: "unauthorized"})
			return
		}
		next(w, r, ps)
	}
}

// kindOf orders|sales-returns -> вид записи
func kindOf(s string) (syncrecord.Kind, bool) {
	switch s {
	case KIND_ORDERS:
		return syncrecord.KindOrder, true
	case KIND_SALES_RETURNS:
		return syncrecord.KindSalesReturn, true
	}
	return "", false
}
