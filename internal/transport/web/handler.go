package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/KotFed0t/asset_tracker/config"
	"github.com/KotFed0t/asset_tracker/internal/model"
	"github.com/KotFed0t/asset_tracker/internal/renderer/htmlRenderer"
	"github.com/KotFed0t/asset_tracker/internal/service"
	"github.com/KotFed0t/asset_tracker/internal/service/portfolioService"
	customMW "github.com/KotFed0t/asset_tracker/internal/transport/web/middleware"
	"github.com/KotFed0t/asset_tracker/utils"
	"github.com/go-chi/chi/v5"
	chiMW "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
)

const exportFileName = "investment-portfolio.json"

type PortfolioService interface {
	Snapshot(ctx context.Context) model.Snapshot
	Status() model.RefreshStatus
	Refresh(ctx context.Context) (model.Snapshot, error)
	AddAsset(ctx context.Context, in model.AssetInput) (model.Asset, error)
	EditQuantity(ctx context.Context, id int64, quantity decimal.Decimal) (model.Asset, bool, error)
	RemoveAsset(ctx context.Context, id int64) (bool, error)
	Export(ctx context.Context) ([]byte, error)
	Import(ctx context.Context, blob []byte) error
	Report(ctx context.Context) (fileBytes []byte, fileExtension string, err error)
}

type handler struct {
	svc            PortfolioService
	maxImportBytes int64
}

type addAssetPayload struct {
	Class    string      `json:"class"`
	Symbol   string      `json:"symbol"`
	Quantity json.Number `json:"quantity"`
	Cost     json.Number `json:"cost"`
	Currency string      `json:"currency"`
}

type quantityPayload struct {
	Quantity json.Number `json:"quantity"`
}

func NewRouter(cfg *config.Config, svc PortfolioService) http.Handler {
	h := &handler{svc: svc, maxImportBytes: cfg.HTTP.MaxImportBytes}

	r := chi.NewRouter()
	r.Use(chiMW.RequestID, customMW.Logger, chiMW.Recoverer)

	r.Get("/", h.dashboard)
	r.Get("/api/snapshot", h.snapshot)
	r.Get("/api/status", h.status)
	r.Post("/assets", h.addAsset)
	r.Post("/assets/{id}/quantity", h.editQuantity)
	r.Post("/assets/{id}/delete", h.removeAsset)
	r.Post("/refresh", h.refresh)
	r.Get("/export", h.export)
	r.Post("/import", h.importPortfolio)
	r.Get("/report", h.report)

	return r
}

func (h *handler) dashboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	d := htmlRenderer.NewDashboard(h.svc.Snapshot(r.Context()), h.svc.Status(), model.AssetClass(q.Get("tab")))
	h.renderDashboard(w, r, http.StatusOK, d.WithFlash(q.Get("flash"), false))
}

func (h *handler) snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Snapshot(r.Context()))
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

func (h *handler) addAsset(w http.ResponseWriter, r *http.Request) {
	var payload addAssetPayload
	if hasJSONBody(r) {
		if err := decodeJSON(r, &payload); err != nil {
			h.fail(w, r, "", err)
			return
		}
	} else {
		payload = addAssetPayload{
			Class:    r.PostFormValue("class"),
			Symbol:   r.PostFormValue("symbol"),
			Quantity: json.Number(r.PostFormValue("quantity")),
			Cost:     json.Number(r.PostFormValue("cost")),
			Currency: r.PostFormValue("currency"),
		}
	}

	in, err := portfolioService.ParseAssetInput(payload.Class, payload.Symbol, payload.Quantity.String(), payload.Cost.String(), payload.Currency)
	if err != nil {
		h.fail(w, r, payload.Class, err)
		return
	}

	asset, err := h.svc.AddAsset(r.Context(), in)
	if err != nil {
		h.fail(w, r, payload.Class, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusCreated, asset)
		return
	}
	redirect(w, r, string(asset.Class), fmt.Sprintf("Added %s", asset.Symbol))
}

func (h *handler) editQuantity(w http.ResponseWriter, r *http.Request) {
	tab := r.PostFormValue("tab")

	id, err := parseID(r)
	if err != nil {
		h.fail(w, r, tab, err)
		return
	}

	raw := r.PostFormValue("quantity")
	if hasJSONBody(r) {
		var payload quantityPayload
		if err := decodeJSON(r, &payload); err != nil {
			h.fail(w, r, tab, err)
			return
		}
		raw = payload.Quantity.String()
	}

	quantity, err := portfolioService.ParseDecimal("quantity", raw)
	if err != nil {
		h.fail(w, r, tab, err)
		return
	}

	asset, found, err := h.svc.EditQuantity(r.Context(), id, quantity)
	if err != nil {
		h.fail(w, r, tab, err)
		return
	}
	// an unknown id is a silent no-op
	if !found {
		if wantsJSON(r) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "unchanged"})
			return
		}
		redirect(w, r, tab, "")
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, asset)
		return
	}
	redirect(w, r, string(asset.Class), fmt.Sprintf("%s quantity set to %s", asset.Symbol, asset.Quantity))
}

func (h *handler) removeAsset(w http.ResponseWriter, r *http.Request) {
	tab := r.PostFormValue("tab")

	id, err := parseID(r)
	if err != nil {
		h.fail(w, r, tab, err)
		return
	}

	removed, err := h.svc.RemoveAsset(r.Context(), id)
	if err != nil {
		h.fail(w, r, tab, err)
		return
	}
	if wantsJSON(r) {
		status := "deleted"
		if !removed {
			status = "unchanged"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
		return
	}
	if !removed {
		redirect(w, r, tab, "")
		return
	}
	redirect(w, r, tab, "Asset deleted")
}

func (h *handler) refresh(w http.ResponseWriter, r *http.Request) {
	tab := r.PostFormValue("tab")

	snapshot, err := h.svc.Refresh(r.Context())
	if err != nil {
		h.fail(w, r, tab, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, snapshot)
		return
	}
	msg := "Prices refreshed"
	if snapshot.FailedQuotes > 0 {
		msg = fmt.Sprintf("Prices refreshed, %d quote(s) unavailable", snapshot.FailedQuotes)
	}
	redirect(w, r, tab, msg)
}

func (h *handler) export(w http.ResponseWriter, r *http.Request) {
	blob, err := h.svc.Export(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": exportFileName}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(blob)
}

func (h *handler) importPortfolio(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportBytes)

	blob, err := readImport(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			err = fmt.Errorf("%w: file is larger than %d bytes", service.ErrInvalidImport, tooLarge.Limit)
		case !errors.Is(err, service.ErrInvalidImport):
			err = fmt.Errorf("%w: can't read upload: %s", service.ErrInvalidImport, err.Error())
		}
		h.fail(w, r, "", err)
		return
	}

	if err := h.svc.Import(r.Context(), blob); err != nil {
		h.fail(w, r, "", err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
		return
	}
	redirect(w, r, "", "Portfolio imported")
}

func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	data, ext, err := h.svc.Report(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": "portfolio" + ext}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// fail answers JSON clients with an error object and browsers with the dashboard
// showing the error. Nothing has been mutated when it is called.
func (h *handler) fail(w http.ResponseWriter, r *http.Request, tab string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
	}

	if wantsJSON(r) {
		writeError(w, code, err.Error())
		return
	}

	d := htmlRenderer.NewDashboard(h.svc.Snapshot(r.Context()), h.svc.Status(), model.AssetClass(tab))
	h.renderDashboard(w, r, code, d.WithFlash(userMessage(err), true))
}

func (h *handler) renderDashboard(w http.ResponseWriter, r *http.Request, code int, d htmlRenderer.Dashboard) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := htmlRenderer.Render(w, d); err != nil {
		slog.Error("failed on htmlRenderer.Render", slog.String("rqID", utils.GetRequestIDFromCtx(r.Context())), slog.String("err", err.Error()))
	}
}

func readImport(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, fmt.Errorf("%w: no file uploaded", service.ErrInvalidImport)
			}
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid id", service.ErrValidation)
	}
	return id, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrInvalidImport):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, portfolioService.ErrBackupDisabled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func userMessage(err error) string {
	if statusFor(err) == http.StatusInternalServerError {
		return "Something went wrong, the portfolio was not changed"
	}
	return err.Error()
}

func redirect(w http.ResponseWriter, r *http.Request, tab, flash string) {
	q := url.Values{}
	if tab != "" {
		q.Set("tab", tab)
	}
	if flash != "" {
		q.Set("flash", flash)
	}
	target := "/"
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// hasJSONBody picks the request decoder. Only Content-Type decides it.
func hasJSONBody(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// wantsJSON picks the response format.
func wantsJSON(r *http.Request) bool {
	return hasJSONBody(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed json body", service.ErrValidation)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
