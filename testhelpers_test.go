//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Kilat-Pet-Delivery/service-coupon/internal/adapter"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/application"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/campaign"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/coupon"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/domain/user"
	couponEvents "github.com/Kilat-Pet-Delivery/service-coupon/internal/events"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/importer"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/database"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/platform/kafka"
	"github.com/Kilat-Pet-Delivery/service-coupon/internal/repository"
)

// testDB holds a migrated database in a throwaway container.
type testDB struct {
	DB     *gorm.DB
	Config database.PostgresConfig
}

// couponStack holds wired-up coupon service components.
type couponStack struct {
	Campaigns  *repository.GormCampaignRepository
	Coupons    *repository.GormCouponRepository
	Users      *repository.GormUserRepository
	CouponSvc  *application.CouponService
	Assignment *application.AssignmentService
	Campaign   *application.CampaignService
	Imports    *application.ImportService
	Identity   *application.IdentityService
}

// setupPostgres starts a PostgreSQL container and applies the embedded migrations.
func setupPostgres(t *testing.T) *testDB {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "test_coupon",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	cfg := database.PostgresConfig{
		Host:         host,
		Port:         port.Port(),
		User:         "test",
		Password:     "test",
		DBName:       "test_coupon",
		SSLMode:      "disable",
		MaxOpenConns: 40,
	}

	logger := zap.NewNop()
	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = database.Connect(cfg, logger)
		return err == nil
	}, 30*time.Second, time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, database.RunMigrations(cfg.DatabaseURL(), logger))
	return &testDB{DB: db, Config: cfg}
}

// setupKafka starts a single-node Kafka and pre-creates the service topics.
func setupKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")
	t.Cleanup(func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	})

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, brokers, couponEvents.TopicCouponEvents, couponEvents.TopicCouponCommands)
	return brokers
}

// setupCouponStack wires the services over the GORM repositories.
func setupCouponStack(t *testing.T, db *gorm.DB, publisher application.EventPublisher) *couponStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	if publisher == nil {
		publisher = application.NopPublisher{}
	}

	campaigns := repository.NewGormCampaignRepository(db)
	coupons := repository.NewGormCouponRepository(db)
	users := repository.NewGormUserRepository(db)
	hasher := auth.NewPasswordHasher(4)

	couponSvc := application.NewCouponService(coupons, campaigns, users, publisher, logger)
	campaignSvc := application.NewCampaignService(campaigns, coupons, publisher, logger)

	return &couponStack{
		Campaigns:  campaigns,
		Coupons:    coupons,
		Users:      users,
		CouponSvc:  couponSvc,
		Assignment: application.NewAssignmentService(database.NewTransactor(db), couponSvc, coupons, campaigns, users, 5, logger),
		Campaign:   campaignSvc,
		Imports:    application.NewImportService(importer.New(campaignSvc, logger), couponSvc, publisher, logger),
		Identity: application.NewIdentityService(users,
			adapter.NewStaticDirectoryAdapter("corp.local", nil, logger),
			application.NewRoleMapper(nil, nil), hasher, logger),
	}
}

func seedUsers(t *testing.T, s *couponStack, n int) []int64 {
	t.Helper()
	ids := make([]int64, n)
	for i := range ids {
		u, err := user.NewUser(fmt.Sprintf("user-%d-%s", i, uuid.NewString()[:8]), "hash", nil, nil)
		require.NoError(t, err)
		require.NoError(t, s.Users.Save(context.Background(), u))
		ids[i] = u.ID()
	}
	return ids
}

func seedCampaignWithCoupons(t *testing.T, s *couponStack, name string, n int) int64 {
	t.Helper()
	ctx := context.Background()
	c, err := campaign.NewCampaign(name, nil, nil)
	require.NoError(t, err)
	require.NoError(t, s.Campaigns.Save(ctx, c))

	id := c.ID()
	for i := 0; i < n; i++ {
		cp, err := coupon.NewCoupon(fmt.Sprintf("%s-%03d", name, i), &id, map[string]interface{}{"seq": i})
		require.NoError(t, err)
		require.NoError(t, s.Coupons.Save(ctx, cp))
	}
	return id
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, ce)
	require.NoError(t, err, "failed to publish event")
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     fmt.Sprintf("test-assert-%s", uuid.New().String()[:8]),
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	require.NoError(t, controllerConn.CreateTopics(topicConfigs...), "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
