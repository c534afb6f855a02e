package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"WooWithWasp/internal/sync"
	"WooWithWasp/internal/telegram"
	"WooWithWasp/internal/webhook"
	"WooWithWasp/pkg/logging"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const maxWebhookBody = 10 << 20

type batchFunc func(ctx context.Context, limit int) (*sync.BatchResult, error)

// HandlerBatch один этап синхронизации, код ответа 200/207/500 по сводке
func (h *Handler) HandlerBatch(name string, fn batchFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		logger := logging.GetLogger()
		logger.Infof("Start %s", name)
		defer logger.Infof("End %s", name)

		limit := sync.ParseLimit(r.URL.Query().Get("limit"))
		// пакет доводится до конца, даже если клиент отключился
		result, err := fn(context.WithoutCancel(r.Context()), limit)
		if err != nil {
			logger.Errorf("%s: %v", name, err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, result.HTTPStatus(), result)
	}
}

func (h *Handler) HandlerStatus(p sync.Pipeline) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		logger := logging.GetLogger()
		query := r.URL.Query()

		result, err := p.Status(r.Context(), query.Get("status"), sync.ParseLimit(query.Get("limit")))
		if errors.Is(err, sync.ErrUnknownStatus) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err != nil {
			logger.Errorf("status %s: %v", p.Kind(), err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) HandlerWebhookOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := logging.GetLogger()
	logger.Info("Start HandlerWebhookOrder")
	defer logger.Info("End HandlerWebhookOrder")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.Wrap(err, "failed read body"))
		return
	}
	logger.Debug("body\n\t", string(body))

	// WooCommerce при создании вебхука шлет webhook_id=N формой, без подписи
	trimmed := bytes.TrimSpace(body)
	if r.Header.Get(webhook.SignatureHeader) == "" && len(trimmed) > 0 && trimmed[0] != '{' {
		writeJSON(w, http.StatusOK, &message{Message: "ping"})
		return
	}

	if err := h.Webhook.VerifySignature(body, r.Header.Get(webhook.SignatureHeader)); err != nil {
		logger.Warnf("webhook: %v", err)
		writeError(w, http.StatusUnauthorized, err)
		return
	}

	result, err := h.Webhook.Ingest(r.Context(), body)
	if errors.Is(err, webhook.ErrInvalidPayload) {
		logger.Warnf("webhook: %v", err)
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err != nil {
		logger.Errorf("failed webhook.Ingest: %v", err)
		telegram.SendMessageWithLogError(h.Notifier,
			fmt.Sprintf("Не удалось обработать вебхук заказа: %s", telegram.Escape(err.Error())))
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
