package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

func main() {
	// 1. CLI Parameter Parsing
	serverAddr := flag.String("server", "127.0.0.1:8080", "Address of the drakon HTTP API")
	action := flag.String("action", "place", "Action to perform: ['place', 'cancel', 'stream']")

	// Order Parameters
	ticker := flag.String("ticker", "AAPL", "Symbol")
	sideStr := flag.String("side", "buy", "Order side: 'buy' or 'sell'")
	typeStr := flag.String("type", "limit", "Order type: 'limit', 'market', 'ioc', or 'fok'")
	price := flag.String("price", "100.00", "Limit price")
	qtyStr := flag.String("qty", "10", "Quantity or comma-separated list (e.g. 10,20,50)")

	// Cancel Parameters
	orderID := flag.String("uuid", "", "Order ID to cancel")

	flag.Parse()

	switch strings.ToLower(*action) {
	case "place":
		quantities := parseQuantities(*qtyStr)
		for _, q := range quantities {
			id := fmt.Sprintf("%s-%d", *ticker, time.Now().UnixNano())
			resp, err := sendPlaceOrder(*serverAddr, id, *ticker, strings.ToLower(*typeStr), strings.ToLower(*sideStr), q, *price)
			if err != nil {
				log.Printf("Failed to place order (Qty: %s): %v", q, err)
				continue
			}
			fmt.Printf("-> %s %s %s @ %s : status=%s filled=%s remaining=%s trades=%d\n",
				strings.ToUpper(*sideStr), *ticker, q, *price, resp.Status, resp.FilledQuantity, resp.RemainingQuantity, len(resp.Trades))
			for _, t := range resp.Trades {
				fmt.Printf("   trade %s %s @ %s (maker=%s taker=%s)\n", t.Quantity, *ticker, t.Price, t.MakerOrderID, t.TakerOrderID)
			}
			time.Sleep(5 * time.Millisecond)
		}

	case "cancel":
		if *orderID == "" {
			log.Fatal("Error: -uuid is required for cancellation")
		}
		cancelled, err := sendCancelOrder(*serverAddr, *ticker, *orderID)
		if err != nil {
			log.Printf("Failed to send cancel request: %v", err)
		} else {
			fmt.Printf("-> Cancel %s: cancelled=%v\n", *orderID, cancelled)
		}

	case "stream":
		fmt.Println("Listening for reports... (Press Ctrl+C to exit)")
		streamReports(*serverAddr, *ticker)
		return

	default:
		log.Fatalf("Unknown action: %s", *action)
	}
}

// parseQuantities splits a comma-separated string into a slice of strings,
// one decimal quantity per placed order.
func parseQuantities(input string) []string {
	parts := strings.Split(input, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if _, err := strconv.ParseFloat(p, 64); err != nil {
			log.Printf("Warning: invalid quantity '%s', skipping.", p)
			continue
		}
		result = append(result, p)
	}
	return result
}

type orderResponse struct {
	OrderID           string          `json:"order_id"`
	Symbol            string          `json:"symbol"`
	Status            string          `json:"status"`
	FilledQuantity    string          `json:"filled_quantity"`
	RemainingQuantity string          `json:"remaining_quantity"`
	Trades            []tradeResponse `json:"trades"`
}

type tradeResponse struct {
	TradeID      string `json:"trade_id"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	MakerOrderID string `json:"maker_order_id"`
	TakerOrderID string `json:"taker_order_id"`
}

// sendPlaceOrder POSTs a new order to the drakon HTTP API.
func sendPlaceOrder(serverAddr, orderID, ticker, orderType, side, qty, price string) (*orderResponse, error) {
	body := map[string]string{
		"order_id":   orderID,
		"symbol":     ticker,
		"order_type": orderType,
		"side":       side,
		"quantity":   qty,
	}
	if orderType != "market" {
		body["price"] = price
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	resp, err := http.Post(fmt.Sprintf("http://%s/v1/orders", serverAddr), "application/json", bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return nil, fmt.Errorf("server rejected order: %s", apiErr.Error)
	}

	var out orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// sendCancelOrder issues DELETE /v1/orders/:symbol/:order_id.
func sendCancelOrder(serverAddr, ticker, orderID string) (bool, error) {
	req, err := http.NewRequest(http.MethodDelete,
		fmt.Sprintf("http://%s/v1/orders/%s/%s", serverAddr, ticker, orderID), nil)
	if err != nil {
		return false, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	var out struct {
		Cancelled bool `json:"cancelled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, err
	}
	return out.Cancelled, nil
}

// streamReports connects to the websocket market-data stream, subscribes to
// ticker, and prints each trade/bbo/depth envelope as it arrives until the
// connection drops.
func streamReports(serverAddr, ticker string) {
	u := url.URL{Scheme: "ws", Host: serverAddr, Path: "/v1/stream"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("Failed to connect to stream at %s: %v", serverAddr, err)
	}
	defer conn.Close()

	sub := map[string]string{"action": "subscribe", "symbol": ticker}
	if err := conn.WriteJSON(sub); err != nil {
		log.Fatalf("Failed to subscribe: %v", err)
	}

	for {
		var envelope struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := conn.ReadJSON(&envelope); err != nil {
			log.Printf("Connection lost: %v", err)
			os.Exit(0)
		}

		switch envelope.Type {
		case "trade":
			var t struct {
				Symbol       string `json:"symbol"`
				Price        string `json:"price"`
				Quantity     string `json:"quantity"`
				Aggressor    string `json:"aggressor_side"`
				MakerOrderID string `json:"maker_order_id"`
				TakerOrderID string `json:"taker_order_id"`
			}
			if err := json.Unmarshal(envelope.Payload, &t); err == nil {
				fmt.Printf("\n[TRADE] %s %s @ %s | aggressor=%s maker=%s taker=%s\n",
					t.Quantity, t.Symbol, t.Price, t.Aggressor, t.MakerOrderID, t.TakerOrderID)
			}
		case "bbo":
			var b struct {
				Symbol    string  `json:"symbol"`
				BestBid   *string `json:"best_bid"`
				BestOffer *string `json:"best_offer"`
			}
			if err := json.Unmarshal(envelope.Payload, &b); err == nil {
				fmt.Printf("\n[BBO] %s bid=%s offer=%s\n", b.Symbol, derefOr(b.BestBid, "-"), derefOr(b.BestOffer, "-"))
			}
		case "depth":
			fmt.Printf("\n[DEPTH] %s\n", ticker)
		}
	}
}

func derefOr(s *string, fallback string) string {
	if s == nil {
		return fallback
	}
	return *s
}
