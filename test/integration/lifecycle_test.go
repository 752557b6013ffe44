package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	segkafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/mykaresto/engine/internal/catalog"
	"github.com/mykaresto/engine/internal/database"
	loyaltypg "github.com/mykaresto/engine/internal/loyalty/infrastructure/postgres"
	"github.com/mykaresto/engine/internal/messaging"
	"github.com/mykaresto/engine/internal/order/domain"
	orderpg "github.com/mykaresto/engine/internal/order/infrastructure/postgres"
	"github.com/mykaresto/engine/pkg/apperr"
	"github.com/mykaresto/engine/pkg/logging"
	"github.com/mykaresto/engine/pkg/outbox"
)

const testTopic = "lifecycle.events"

func TestOrderLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}

	ctx := context.Background()
	env, err := Setup(ctx)
	require.NoError(t, err)
	defer env.Teardown(context.Background())

	log := logging.New("integration-test")
	pool, err := database.Connect(ctx, env.PGURL)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, database.Migrate(ctx, log, pool))

	_, err = pool.Exec(ctx, `
		INSERT INTO promo_codes (code, description, discount_type, discount_value, min_order_amount, max_uses, valid_from, is_active)
		VALUES ('WELCOME10', 'ten percent off', 'percentage', 10, 1000, 5, now() - interval '1 hour', TRUE)`)
	require.NoError(t, err)

	repo := orderpg.NewRepository(log, pool)

	draft, err := domain.NewOrder("user-1", domain.Takeaway, "T1", domain.PayCard,
		domain.CustomerInfo{Name: "Mika", Phone: "555-0101"},
		[]domain.ItemInput{
			{Product: catalog.Product{ID: "p1", Name: "Ramen", Price: 1500}, Quantity: 2},
			{Product: catalog.Product{ID: "p2", Name: "Gyoza", Price: 800}, Quantity: 1},
		})
	require.NoError(t, err)

	created, err := repo.Create(ctx, draft, "WELCOME10", "order.created", notification(t, draft.ID), "")
	require.NoError(t, err)
	require.Equal(t, int64(3800), created.Subtotal)
	require.Equal(t, int64(380), created.Discount)
	require.Equal(t, int64(3420), created.Total)
	require.Equal(t, domain.StatusPending, created.Status)

	t.Run("promo usage incremented once", func(t *testing.T) {
		var uses int64
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT current_uses FROM promo_codes WHERE code = 'WELCOME10'`).Scan(&uses))
		require.Equal(t, int64(1), uses)
	})

	t.Run("payment confirmation is idempotent", func(t *testing.T) {
		payload := notification(t, created.ID)
		require.NoError(t, repo.ConfirmPayment(ctx, created.ID, "pay_001", "order.payment_confirmed", payload, ""))
		require.NoError(t, repo.ConfirmPayment(ctx, created.ID, "pay_001", "order.payment_confirmed", payload, ""))

		err := repo.ConfirmPayment(ctx, created.ID, "pay_other", "order.payment_confirmed", payload, "")
		require.Equal(t, apperr.KindConflict, apperr.KindOf(err))

		got, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, domain.PaymentPaid, got.PaymentStatus)
		require.Equal(t, "pay_001", got.PaymentRef)
		require.Equal(t, domain.StatusConfirmed, got.Status)
	})

	t.Run("loyalty accrues exactly once", func(t *testing.T) {
		loyalty := loyaltypg.NewRepository(log, pool)
		balance, err := loyalty.Balance(ctx, "user-1")
		require.NoError(t, err)
		require.Equal(t, created.Total/100, balance)

		var earned int
		require.NoError(t, pool.QueryRow(ctx,
			`SELECT count(*) FROM loyalty_transactions WHERE user_id = 'user-1' AND transaction_type = 'earned'`).Scan(&earned))
		require.Equal(t, 1, earned)
	})

	t.Run("stale status update loses", func(t *testing.T) {
		payload := notification(t, created.ID)
		require.NoError(t, repo.UpdateStatus(ctx, created.ID, domain.StatusConfirmed, domain.StatusPreparing, "order.status_changed", payload, ""))

		err := repo.UpdateStatus(ctx, created.ID, domain.StatusConfirmed, domain.StatusPreparing, "order.status_changed", payload, "")
		require.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	})

	t.Run("outbox relays to kafka", func(t *testing.T) {
		store := database.NewOutboxStore(log, pool)
		events, err := store.LockBatch(ctx, "it-relay", 10, time.Minute)
		require.NoError(t, err)
		require.GreaterOrEqual(t, len(events), 3)

		writer := messaging.NewWriter(env.KAddr)
		defer writer.Close()
		dispatcher := outbox.NewDispatcher(log, writer, testTopic)

		ids := make([]int64, 0, len(events))
		for _, ev := range events {
			require.NoError(t, dispatcher.Dispatch(ctx, ev))
			ids = append(ids, ev.ID)
		}
		require.NoError(t, store.MarkSent(ctx, ids))

		reader := segkafka.NewReader(segkafka.ReaderConfig{
			Brokers:     env.KAddr,
			Topic:       testTopic,
			Partition:   0,
			StartOffset: segkafka.FirstOffset,
		})
		defer reader.Close()

		readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		for i := 0; i < len(events); i++ {
			msg, err := reader.ReadMessage(readCtx)
			require.NoError(t, err)
			var n outbox.Notification
			require.NoError(t, json.Unmarshal(msg.Value, &n))
			require.Equal(t, outbox.EntityOrder, n.EntityType)
			require.Equal(t, created.ID, n.EntityID)
		}

		// a second sweep finds nothing left to send
		rest, err := store.LockBatch(ctx, "it-relay", 10, time.Minute)
		require.NoError(t, err)
		require.Empty(t, rest)
	})
}

func notification(t *testing.T, orderID string) []byte {
	t.Helper()
	b, err := json.Marshal(outbox.Notification{
		EntityType: outbox.EntityOrder,
		EntityID:   orderID,
		ChangeKind: outbox.ChangeStatusChanged,
	})
	require.NoError(t, err)
	return b
}
