// Package influx records pipeline stage timings and data-set sizes.
package influx

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

const (
	// StageBucket receives one point per completed pipeline stage.
	StageBucket = "extractor_stages"
	// DataBucket receives one point per extraction describing the data set.
	DataBucket = "extractor_data"
)

// DefaultBucketNames are the InfluxDB buckets the extractor writes to.
var DefaultBucketNames = []string{
	StageBucket,
	DataBucket,
}

// Manager handles InfluxDB connections and writes. When the server is
// unreachable points are appended to a gzipped line-protocol backup file
// instead, so no run loses its metrics.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
			if err != nil {
				return errors.Wrap(err, "creating backup file")
			}
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		if err := m.setupOrganizationAndBuckets(); err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return errors.Newf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
	} else {
		if m.BackupWriter == nil {
			return errors.New("influxDB client not initialized and backup writer not available")
		}

		lineProtocol := influxdb2_write.PointToLineProtocol(point, time.Duration(1*time.Nanosecond))
		if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
			return errors.Wrap(err, "writing to InfluxDB backup file")
		}
	}

	return nil
}

// Close flushes pending writes and the backup file.
func (m *Manager) Close() error {
	for _, writer := range m.Writers {
		writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		return m.BackupWriter.Close()
	}
	return nil
}

// StagePoint builds the point recorded after a pipeline stage finishes.
func StagePoint(stage string, duration time.Duration, err error) *influxdb2_write.Point {
	point := influxdb2_write.NewPointWithMeasurement("stage_run").
		AddTag("stage", stage).
		AddField("duration_ms", duration.Milliseconds()).
		AddField("success", err == nil)
	return point
}

// DataPoint builds the point describing an assembled data set.
func DataPoint(items, fluids, recipes, machines, beacons int) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement("data_set").
		AddField("items", items).
		AddField("fluids", fluids).
		AddField("recipes", recipes).
		AddField("machines", machines).
		AddField("beacons", beacons)
}
