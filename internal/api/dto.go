package api

import (
	"time"

	"github.com/shopspring/decimal"

	"drakon/internal/domain"
)

// submitOrderRequest is the POST /v1/orders body. Quantity and Price cross
// the wire as strings so arbitrary-precision decimals survive JSON
// round-tripping exactly (SPEC_FULL §6).
type submitOrderRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	Symbol    string `json:"symbol" binding:"required"`
	OrderType string `json:"order_type" binding:"required"`
	Side      string `json:"side" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
	Price     string `json:"price"`
}

func parseOrderType(s string) (domain.OrderType, error) {
	switch s {
	case "limit":
		return domain.Limit, nil
	case "market":
		return domain.Market, nil
	case "ioc":
		return domain.IOC, nil
	case "fok":
		return domain.FOK, nil
	default:
		return 0, domain.ErrUnknownOrderType
	}
}

func parseSide(s string) (domain.Side, error) {
	switch s {
	case "buy":
		return domain.Buy, nil
	case "sell":
		return domain.Sell, nil
	default:
		return 0, domain.ErrUnknownSide
	}
}

type orderResponse struct {
	OrderID           string  `json:"order_id"`
	Symbol            string  `json:"symbol"`
	Status            string  `json:"status"`
	FilledQuantity    string  `json:"filled_quantity"`
	RemainingQuantity string  `json:"remaining_quantity"`
	Trades            []tradeResponse `json:"trades"`
}

type tradeResponse struct {
	TradeID      string `json:"trade_id"`
	Symbol       string `json:"symbol"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	Timestamp    string `json:"timestamp"`
	Aggressor    string `json:"aggressor_side"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
}

func toTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:      t.ID,
		Symbol:       t.Symbol,
		Price:        t.Price.String(),
		Quantity:     t.Quantity.String(),
		Timestamp:    t.Timestamp.Format(time.RFC3339Nano),
		Aggressor:    t.Aggressor.String(),
		MakerOrderID: t.MakerOrderID,
		TakerOrderID: t.TakerOrderID,
	}
}

func toOrderResponse(o *domain.Order, trades []*domain.Trade) orderResponse {
	resp := orderResponse{
		OrderID:           o.ID,
		Symbol:            o.Symbol,
		Status:            o.Status.String(),
		FilledQuantity:    o.FilledQuantity.String(),
		RemainingQuantity: o.RemainingQuantity.String(),
	}
	resp.Trades = make([]tradeResponse, 0, len(trades))
	for _, t := range trades {
		resp.Trades = append(resp.Trades, toTradeResponse(t))
	}
	return resp
}

type bboResponse struct {
	Symbol        string  `json:"symbol"`
	BestBid       *string `json:"best_bid"`
	BestOffer     *string `json:"best_offer"`
	BidQuantity   *string `json:"bid_quantity"`
	OfferQuantity *string `json:"offer_quantity"`
	Timestamp     string  `json:"timestamp"`
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func toBBOResponse(bbo domain.BBO) bboResponse {
	return bboResponse{
		Symbol:        bbo.Symbol,
		BestBid:       decimalString(bbo.BestBid),
		BestOffer:     decimalString(bbo.BestOffer),
		BidQuantity:   decimalString(bbo.BidQuantity),
		OfferQuantity: decimalString(bbo.OfferQuantity),
		Timestamp:     bbo.Timestamp.Format(time.RFC3339Nano),
	}
}

type depthLevelResponse [2]string

type depthResponse struct {
	Symbol    string               `json:"symbol"`
	Bids      []depthLevelResponse `json:"bids"`
	Asks      []depthLevelResponse `json:"asks"`
	Timestamp string               `json:"timestamp"`
}

func toDepthResponse(d domain.DepthSnapshot) depthResponse {
	resp := depthResponse{
		Symbol:    d.Symbol,
		Timestamp: d.Timestamp.Format(time.RFC3339Nano),
	}
	resp.Bids = make([]depthLevelResponse, 0, len(d.Bids))
	for _, l := range d.Bids {
		resp.Bids = append(resp.Bids, depthLevelResponse{l.Price.String(), l.Quantity.String()})
	}
	resp.Asks = make([]depthLevelResponse, 0, len(d.Asks))
	for _, l := range d.Asks {
		resp.Asks = append(resp.Asks, depthLevelResponse{l.Price.String(), l.Quantity.String()})
	}
	return resp
}
