package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fiffu/stobot/config"
	"github.com/fiffu/stobot/lib/journal"
	"github.com/fiffu/stobot/lib/models"
	"github.com/fiffu/stobot/lib/registry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	defaultDeliveryLimit = 20
	maxDeliveryLimit     = 500
)

type channelStore interface {
	Snapshot() map[uint64]models.Platforms
}

type deliveryStore interface {
	Recent(ctx context.Context, limit int) ([]journal.Delivery, error)
}

func NewAPI(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger, reg *registry.Registry, j *journal.Journal) *http.Server {
	addr := fmt.Sprintf(":%d", cfg.ServerPort)
	srv := &http.Server{Addr: addr, Handler: router(log, cfg.GetCreds(), reg, j)}

	if cfg.ServerPort == 0 {
		log.Sugar().Info("Status API is disabled")
		return srv
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Sugar().Infow("Starting status API", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Sugar().Errorw("Status API failed", "err", err)
				}
			}()
			return nil
		},
		OnStop: srv.Shutdown,
	})

	return srv
}

func router(log *zap.Logger, creds map[string]string, channels channelStore, deliveries deliveryStore) http.Handler {
	ctrl := &controller{log, channels, deliveries}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		if len(creds) > 0 {
			r.Use(middleware.BasicAuth("stobot", creds))
		} else {
			log.Sugar().Info("Auth is disabled since no credentials are defined")
		}

		r.Get("/channels", ctrl.listChannels)
		r.Get("/channels/{channel_id}", ctrl.viewChannel)
		r.Get("/deliveries", ctrl.listDeliveries)
	})

	return r
}

type controller struct {
	log        *zap.Logger
	channels   channelStore
	deliveries deliveryStore
}

func (ctrl *controller) reject(w http.ResponseWriter, status int, err error) {
	if err != nil {
		http.Error(w, err.Error(), status)
	} else {
		w.WriteHeader(status)
	}
}

func (ctrl *controller) resolve(w http.ResponseWriter, status int, body any) {
	if b, err := json.Marshal(body); err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		ctrl.log.Sugar().Errorw("Request failed", "err", err)
		return
	} else {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(b)
	}
}

func (ctrl *controller) listChannels(w http.ResponseWriter, r *http.Request) {
	ctrl.resolve(w, http.StatusOK, ChannelViews(ctrl.channels.Snapshot()))
}

func (ctrl *controller) viewChannel(w http.ResponseWriter, r *http.Request) {
	channelID, err := strconv.ParseUint(chi.URLParam(r, "channel_id"), 10, 64)
	if err != nil {
		ctrl.reject(w, http.StatusBadRequest, errors.New("channel id must be numeric"))
		return
	}

	platforms, ok := ctrl.channels.Snapshot()[channelID]
	if !ok {
		ctrl.reject(w, http.StatusNotFound, nil)
		return
	}
	ctrl.resolve(w, http.StatusOK, ChannelView{}.From(channelID, platforms))
}

func (ctrl *controller) listDeliveries(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeliveryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxDeliveryLimit {
			ctrl.reject(w, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and %d", maxDeliveryLimit))
			return
		}
		limit = n
	}

	rows, err := ctrl.deliveries.Recent(r.Context(), limit)
	if err != nil {
		ctrl.reject(w, http.StatusInternalServerError, err)
		return
	}
	ctrl.resolve(w, http.StatusOK, FromMany[journal.Delivery, DeliveryView](rows))
}
