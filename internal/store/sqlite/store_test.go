package sqlite

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"tradingbotv1/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{
		DBPath:              filepath.Join(t.TempDir(), "test.db"),
		MinPositionQuantity: 0.001,
		MinPositionValue:    10,
	})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func assertFloat(t *testing.T, label string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 0.0001 {
		t.Errorf("%s: got %.6f, want %.6f", label, got, want)
	}
}

func TestApplyFill_BuyWeightedAverage(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	pos, _, err := s.ApplyFill(ctx, "AAPL", "BUY", 1, 100)
	if err != nil {
		t.Fatal(err)
	}
	assertFloat(t, "first buy avg", pos.AvgPrice, 100)
	assertFloat(t, "first buy hwm", pos.HighWaterMark, 100)

	// Add 1 unit at 110: avg = (100 + 110) / 2 = 105, HWM ratchets.
	pos, _, err = s.ApplyFill(ctx, "AAPL", "BUY", 1, 110)
	if err != nil {
		t.Fatal(err)
	}
	assertFloat(t, "blended avg", pos.AvgPrice, 105)
	assertFloat(t, "blended qty", pos.Qty, 2)
	assertFloat(t, "ratcheted hwm", pos.HighWaterMark, 110)
}

func TestApplyFill_SellRealizesPnL(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, _, err := s.ApplyFill(ctx, "AAPL", "BUY", 2, 100); err != nil {
		t.Fatal(err)
	}

	pos, realized, err := s.ApplyFill(ctx, "AAPL", "SELL", 1, 110)
	if err != nil {
		t.Fatal(err)
	}
	assertFloat(t, "realized pnl", realized, 10)
	assertFloat(t, "remaining qty", pos.Qty, 1)
	// Average price is untouched by sells.
	assertFloat(t, "avg after sell", pos.AvgPrice, 100)
}

func TestApplyFill_FullSellClosesPosition(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, _, err := s.ApplyFill(ctx, "AAPL", "BUY", 1, 100); err != nil {
		t.Fatal(err)
	}
	pos, realized, err := s.ApplyFill(ctx, "AAPL", "SELL", 1, 95)
	if err != nil {
		t.Fatal(err)
	}
	if pos != nil {
		t.Errorf("position after full sell = %+v, want nil", pos)
	}
	assertFloat(t, "realized loss", realized, -5)

	got, err := s.GetPosition(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Errorf("stored position = %+v, want nil", got)
	}
}

func TestApplyFill_DustRemainderFlushed(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, _, err := s.ApplyFill(ctx, "AAPL", "BUY", 1, 50); err != nil {
		t.Fatal(err)
	}
	// Sell all but 0.0005 units: remainder worth $0.025 → closed out.
	pos, _, err := s.ApplyFill(ctx, "AAPL", "SELL", 0.9995, 50)
	if err != nil {
		t.Fatal(err)
	}
	if pos != nil {
		t.Errorf("dust position survived: %+v", pos)
	}
}

func TestApplyFill_SellWithoutPosition(t *testing.T) {
	s := testStore(t)
	if _, _, err := s.ApplyFill(context.Background(), "AAPL", "SELL", 1, 100); err == nil {
		t.Fatal("expected error selling with no position")
	}
}

func TestUpdateHighWaterMark(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, _, err := s.ApplyFill(ctx, "AAPL", "BUY", 1, 100); err != nil {
		t.Fatal(err)
	}

	if err := s.UpdateHighWaterMark(ctx, "AAPL", 108); err != nil {
		t.Fatal(err)
	}
	pos, err := s.GetPosition(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	assertFloat(t, "hwm after ratchet", pos.HighWaterMark, 108)

	// Lower prices never pull the mark back down.
	if err := s.UpdateHighWaterMark(ctx, "AAPL", 95); err != nil {
		t.Fatal(err)
	}
	pos, err = s.GetPosition(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	assertFloat(t, "hwm after dip", pos.HighWaterMark, 108)
}

func TestJournalQueries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)

	trades := []model.TradeRecord{
		{OrderID: "o1", Symbol: "AAPL", Side: "SELL", Qty: 1, Price: 100, RealizedPnL: 4, FilledAt: now.Add(-50 * time.Hour)},
		{OrderID: "o2", Symbol: "AAPL", Side: "SELL", Qty: 1, Price: 99, RealizedPnL: -2, FilledAt: now.Add(-26 * time.Hour)},
		{OrderID: "o3", Symbol: "AAPL", Side: "BUY", Qty: 1, Price: 98, FilledAt: now.Add(-2 * time.Hour)},
		{OrderID: "o4", Symbol: "AAPL", Side: "SELL", Qty: 1, Price: 97, RealizedPnL: -1, FilledAt: now.Add(-time.Hour)},
	}
	for _, tr := range trades {
		if err := s.RecordTrade(ctx, tr); err != nil {
			t.Fatal(err)
		}
	}

	last, err := s.LastTrade(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.OrderID != "o4" {
		t.Errorf("last trade = %+v, want o4", last)
	}

	count, err := s.TradesSince(ctx, "AAPL", now.Add(-3*time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("trades since = %d, want 2", count)
	}

	// Streak: o4 (-1), then o2 (-2), then o1 (+4) stops the count.
	losses, err := s.ConsecutiveLosses(ctx, "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if losses != 2 {
		t.Errorf("consecutive losses = %d, want 2", losses)
	}

	recent, err := s.RecentTrades(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].OrderID != "o4" {
		t.Errorf("recent trades = %+v, want newest first", recent)
	}
}

func TestLastTrade_Empty(t *testing.T) {
	s := testStore(t)
	last, err := s.LastTrade(context.Background(), "AAPL")
	if err != nil {
		t.Fatal(err)
	}
	if last != nil {
		t.Errorf("last trade on empty journal = %+v, want nil", last)
	}
}
