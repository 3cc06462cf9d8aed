package execution

import (
	"context"
	"math"
	"testing"

	"tradingbotv1/internal/model"
	"tradingbotv1/internal/strategy"
)

func TestPaperExecutor_BuySlipsUp(t *testing.T) {
	p := NewPaperExecutor(10) // 0.10%
	d := strategy.Decision{Action: strategy.ActionBuy, Qty: 2}

	fill, err := p.Execute(context.Background(), "AAPL", d, 100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fill.Price-100.10) > 0.0001 {
		t.Errorf("buy fill price = %.4f, want 100.10", fill.Price)
	}
	if fill.Side != "BUY" || fill.Qty != 2 {
		t.Errorf("fill = %+v, want BUY qty 2", fill)
	}
	if fill.OrderID != "PAPER-1" {
		t.Errorf("order id = %s, want PAPER-1", fill.OrderID)
	}
}

func TestPaperExecutor_SellSlipsDown(t *testing.T) {
	p := NewPaperExecutor(10)
	d := strategy.Decision{Action: strategy.ActionSell, Qty: 1}

	fill, err := p.Execute(context.Background(), "AAPL", d, 100)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(fill.Price-99.90) > 0.0001 {
		t.Errorf("sell fill price = %.4f, want 99.90", fill.Price)
	}
}

func TestPaperExecutor_RejectsHoldAndBadInput(t *testing.T) {
	p := NewPaperExecutor(0)

	if _, err := p.Execute(context.Background(), "AAPL", strategy.Decision{Action: strategy.ActionHold}, 100); err == nil {
		t.Error("expected error executing HOLD")
	}
	if _, err := p.Execute(context.Background(), "AAPL", strategy.Decision{Action: strategy.ActionBuy, Qty: 0}, 100); err == nil {
		t.Error("expected error for zero qty")
	}
	if _, err := p.Execute(context.Background(), "AAPL", strategy.Decision{Action: strategy.ActionBuy, Qty: 1}, 0); err == nil {
		t.Error("expected error for zero price")
	}
}

func TestPaperExecutor_SequencesOrders(t *testing.T) {
	p := NewPaperExecutor(0)
	d := strategy.Decision{Action: strategy.ActionBuy, Qty: 1}

	for i := 0; i < 3; i++ {
		if _, err := p.Execute(context.Background(), "AAPL", d, 100); err != nil {
			t.Fatal(err)
		}
	}
	fills := p.Fills()
	if len(fills) != 3 {
		t.Fatalf("fills = %d, want 3", len(fills))
	}
	if fills[2].OrderID != "PAPER-3" {
		t.Errorf("third order id = %s, want PAPER-3", fills[2].OrderID)
	}
}

type fakePlacer struct {
	placed *model.Order
	err    error
}

func (f *fakePlacer) PlaceOrder(ctx context.Context, order model.Order) (*model.Order, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := order
	out.OrderID = "BRK-42"
	out.Status = "FILLED"
	out.FillPrice = f.placed.FillPrice
	f.placed = &out
	return &out, nil
}

func TestBrokerExecutor_UsesBrokerFillPrice(t *testing.T) {
	placer := &fakePlacer{placed: &model.Order{FillPrice: 101.25}}
	b := NewBrokerExecutor(placer)

	fill, err := b.Execute(context.Background(), "AAPL", strategy.Decision{Action: strategy.ActionBuy, Qty: 1}, 100)
	if err != nil {
		t.Fatal(err)
	}
	if fill.Price != 101.25 {
		t.Errorf("fill price = %.4f, want broker-reported 101.25", fill.Price)
	}
	if fill.OrderID != "BRK-42" {
		t.Errorf("order id = %s, want BRK-42", fill.OrderID)
	}
}

func TestBrokerExecutor_FallsBackToRefPrice(t *testing.T) {
	placer := &fakePlacer{placed: &model.Order{}}
	b := NewBrokerExecutor(placer)

	fill, err := b.Execute(context.Background(), "AAPL", strategy.Decision{Action: strategy.ActionSell, Qty: 1}, 99.5)
	if err != nil {
		t.Fatal(err)
	}
	if fill.Price != 99.5 {
		t.Errorf("fill price = %.4f, want ref price 99.5", fill.Price)
	}
}
