package binance

import "testing"

func TestParseTrade(t *testing.T) {
	b := []byte(`{"e":"trade","s":"BTCUSDT","p":"65000.00","q":"0.5000","t":1700000000000}`)
	trade, err := parseTrade(b)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if trade == nil {
		t.Fatalf("expected trade")
	}
	if trade.Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %q", trade.Symbol)
	}
	if trade.Price != 65000.0 {
		t.Fatalf("price = %v, want 65000.0", trade.Price)
	}
	if trade.Quantity != 0.5 {
		t.Fatalf("quantity = %v, want 0.5", trade.Quantity)
	}
	if trade.TradeTime != 1700000000000 {
		t.Fatalf("trade time = %v", trade.TradeTime)
	}
}

func TestParseTradeSkipsNonTradeFrames(t *testing.T) {
	for _, b := range [][]byte{
		[]byte(`{"result":null,"id":1}`),
		[]byte(`{"e":"aggTrade","s":"BTCUSDT","p":"1","q":"1","t":1}`),
	} {
		trade, err := parseTrade(b)
		if err != nil {
			t.Fatalf("parse %s: %v", b, err)
		}
		if trade != nil {
			t.Fatalf("expected nil trade for %s", b)
		}
	}
}

func TestParseTradeMalformed(t *testing.T) {
	for _, b := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"e":"trade","s":"BTCUSDT","p":"oops","q":"1","t":1}`),
		[]byte(`{"e":"trade","s":"BTCUSDT","p":"1","q":"oops","t":1}`),
	} {
		if _, err := parseTrade(b); err == nil {
			t.Fatalf("expected error for %s", b)
		}
	}
}
