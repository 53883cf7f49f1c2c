package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/linchengweiii/crypto-dashboard/internal/dashboard"
	"github.com/linchengweiii/crypto-dashboard/internal/market"
	"github.com/linchengweiii/crypto-dashboard/internal/portfolio"
	"github.com/linchengweiii/crypto-dashboard/internal/render"
	"github.com/linchengweiii/crypto-dashboard/internal/stream"
)

type Service interface {
	Refresh(ctx context.Context) error
	Market(query string) dashboard.MarketView
	Coin(ctx context.Context, id string) (dashboard.CoinView, error)
	Portfolio(ctx context.Context) (dashboard.PortfolioView, error)
	Options() []market.Asset
	Status() market.Status
	AddHolding(ctx context.Context, req dashboard.AddRequest) (portfolio.Result, error)
	RemoveHolding(ctx context.Context, id string) (portfolio.Result, error)
}

// Subscriber is the event source behind the WebSocket stream.
type Subscriber interface {
	Subscribe() (id string, events <-chan stream.Event, cancel func())
}

func NewServer(svc Service, events Subscriber) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)

	cfg := huma.DefaultConfig("Crypto Dashboard API", "1.0.0")
	api := humachi.New(router, cfg)

	registerMarketHandlers(api, svc)
	registerPortfolioHandlers(api, svc)
	registerHealthHandler(api, svc)

	router.Get("/api/v1/stream", streamHandler(svc, events))

	return router
}

// ===== Market =====

func registerMarketHandlers(api huma.API, svc Service) {
	type marketOutput struct {
		Body dashboard.MarketView
	}
	huma.Register(api, huma.Operation{OperationID: "get-market", Method: http.MethodGet, Path: "/api/v1/market", Summary: "Current market snapshot, optionally filtered", Tags: []string{"Market"}},
		func(ctx context.Context, input *struct {
			Query string `query:"q" doc:"Case-insensitive name or symbol filter"`
		}) (*marketOutput, error) {
			return &marketOutput{Body: svc.Market(input.Query)}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "refresh-market", Method: http.MethodPost, Path: "/api/v1/market/refresh", Summary: "Refresh market data now", Tags: []string{"Market"}},
		func(ctx context.Context, input *struct{}) (*marketOutput, error) {
			if err := svc.Refresh(ctx); err != nil {
				return nil, mapErr(err)
			}
			return &marketOutput{Body: svc.Market("")}, nil
		})

	type coinOutput struct {
		Body struct {
			dashboard.CoinView
			Display coinDisplay `json:"display"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-coin", Method: http.MethodGet, Path: "/api/v1/market/{id}", Summary: "Asset details and price history", Tags: []string{"Market"}},
		func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*coinOutput, error) {
			cv, err := svc.Coin(ctx, input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &coinOutput{}
			out.Body.CoinView = cv
			out.Body.Display = newCoinDisplay(cv.Asset)
			return out, nil
		})
}

type coinDisplay struct {
	Price       string `json:"price"`
	Change24h   string `json:"change24h"`
	ChangeClass string `json:"changeClass"`
	MarketCap   string `json:"marketCap"`
	Volume24h   string `json:"volume24h"`
}

func newCoinDisplay(a market.Asset) coinDisplay {
	return coinDisplay{
		Price:       render.Currency(a.Price),
		Change24h:   render.Change(a.Change24h),
		ChangeClass: render.ChangeClass(a.Change24h),
		MarketCap:   render.LargeNumber(a.MarketCap),
		Volume24h:   render.LargeNumber(a.Volume24h),
	}
}

// ===== Portfolio =====

type rowDisplay struct {
	ID           string `json:"id"`
	Quantity     string `json:"quantity"`
	AvgBuyPrice  string `json:"avgBuyPrice"`
	CurrentPrice string `json:"currentPrice"`
	CurrentValue string `json:"currentValue"`
}

type portfolioDisplay struct {
	Rows       []rowDisplay `json:"rows"`
	TotalValue string       `json:"totalValue"`
}

func newPortfolioDisplay(v portfolio.Valuation) portfolioDisplay {
	d := portfolioDisplay{Rows: make([]rowDisplay, 0, len(v.Rows)), TotalValue: render.Currency(v.TotalValue)}
	for _, r := range v.Rows {
		d.Rows = append(d.Rows, rowDisplay{
			ID:           r.ID,
			Quantity:     render.Quantity(r.Quantity),
			AvgBuyPrice:  render.Price(r.AvgBuyPrice),
			CurrentPrice: render.Price(r.CurrentPrice),
			CurrentValue: render.Currency(r.CurrentValue),
		})
	}
	return d
}

type option struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	Label  string `json:"label"`
}

func registerPortfolioHandlers(api huma.API, svc Service) {
	type portfolioOutput struct {
		Body struct {
			dashboard.PortfolioView
			Display portfolioDisplay `json:"display"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "get-portfolio", Method: http.MethodGet, Path: "/api/v1/portfolio", Summary: "Holdings valued against the current snapshot", Tags: []string{"Portfolio"}},
		func(ctx context.Context, input *struct{}) (*portfolioOutput, error) {
			pv, err := svc.Portfolio(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &portfolioOutput{}
			out.Body.PortfolioView = pv
			out.Body.Display = newPortfolioDisplay(pv.Valuation)
			return out, nil
		})

	type optionsOutput struct {
		Body struct {
			Options []option `json:"options"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-portfolio-options", Method: http.MethodGet, Path: "/api/v1/portfolio/options", Summary: "Coins available to add, sorted by name", Tags: []string{"Portfolio"}},
		func(ctx context.Context, input *struct{}) (*optionsOutput, error) {
			assets := svc.Options()
			out := &optionsOutput{}
			out.Body.Options = make([]option, 0, len(assets))
			for _, a := range assets {
				out.Body.Options = append(out.Body.Options, option{ID: a.ID, Name: a.Name, Symbol: a.Symbol, Label: render.OptionLabel(a)})
			}
			return out, nil
		})

	// Rejected mutations still answer with a Result, under status 400.
	type resultOutput struct {
		Status int
		Body   portfolio.Result
	}
	huma.Register(api, huma.Operation{OperationID: "add-holding", Method: http.MethodPost, Path: "/api/v1/portfolio/holdings", Summary: "Add to a holding", Tags: []string{"Portfolio"}},
		func(ctx context.Context, input *struct {
			Body struct {
				ID            string  `json:"id" required:"true"`
				Name          string  `json:"name,omitempty" required:"false"`
				Symbol        string  `json:"symbol,omitempty" required:"false"`
				Quantity      float64 `json:"quantity" required:"true"`
				PurchasePrice float64 `json:"purchase_price,omitempty" required:"false" doc:"Price per unit; omit or 0 when unknown"`
			}
		}) (*resultOutput, error) {
			res, err := svc.AddHolding(ctx, dashboard.AddRequest{
				ID:            input.Body.ID,
				Name:          input.Body.Name,
				Symbol:        input.Body.Symbol,
				Quantity:      input.Body.Quantity,
				PurchasePrice: input.Body.PurchasePrice,
			})
			if errors.Is(err, portfolio.ErrInvalidInput) {
				return &resultOutput{Status: http.StatusBadRequest, Body: res}, nil
			}
			if err != nil {
				return nil, mapErr(err)
			}
			return &resultOutput{Body: res}, nil
		})

	huma.Register(api, huma.Operation{OperationID: "remove-holding", Method: http.MethodDelete, Path: "/api/v1/portfolio/holdings/{id}", Summary: "Remove a holding", Tags: []string{"Portfolio"}},
		func(ctx context.Context, input *struct {
			ID string `path:"id"`
		}) (*resultOutput, error) {
			res, err := svc.RemoveHolding(ctx, input.ID)
			if err != nil {
				return nil, mapErr(err)
			}
			return &resultOutput{Body: res}, nil
		})
}

// ===== Health =====

func registerHealthHandler(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string        `json:"status"`
			Market market.Status `json:"market"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "healthz", Method: http.MethodGet, Path: "/healthz", Summary: "Liveness and market status", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			out.Body.Market = svc.Status()
			return out, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, portfolio.ErrInvalidInput):
		return huma.Error400BadRequest("Invalid input data.", err)
	case errors.Is(err, dashboard.ErrAssetNotFound):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, market.ErrRefreshInFlight):
		return huma.Error409Conflict(err.Error())
	case errors.Is(err, market.ErrDataSource):
		return huma.Error502BadGateway("Failed to load market data. " + err.Error())
	case errors.Is(err, portfolio.ErrPersistence):
		return huma.Error500InternalServerError(err.Error())
	}
	return huma.Error500InternalServerError(err.Error())
}
