package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
)

// RateSource fetches USD-based exchange rates for a set of currency
// codes.
type RateSource interface {
	Rates(ctx context.Context, currencies []string) (map[string]float64, error)
}

// CurrencyService converts monetary amounts between currencies using
// USD-based rates from a third-party API.
type CurrencyService struct {
	rates RateSource
}

func NewCurrencyService(rates RateSource) *CurrencyService {
	return &CurrencyService{rates: rates}
}

// Convert translates amount from one currency into another. Rates are
// quoted against USD, so the amount is first normalized to USD and then
// scaled into the target currency.
func (s *CurrencyService) Convert(ctx context.Context, amount float64, fromCur, toCur string) (float64, error) {
	ctx, span := otel.Tracer("currency-service").Start(ctx, "CurrencyService.Convert")
	defer span.End()

	rates, err := s.rates.Rates(ctx, []string{fromCur, toCur})
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	fromRate, ok := rates[fromCur]
	if !ok || fromRate == 0 {
		return 0, fmt.Errorf("no rate for currency %q", fromCur)
	}
	toRate, ok := rates[toCur]
	if !ok {
		return 0, fmt.Errorf("no rate for currency %q", toCur)
	}

	return amount / fromRate * toRate, nil
}
