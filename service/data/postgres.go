package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"golang.org/x/xerrors"
)

const schema = `
CREATE TABLE IF NOT EXISTS asset_metadata (
	asset_id      TEXT        NOT NULL,
	operator_name TEXT        NOT NULL,
	workflow_id   TEXT        NOT NULL,
	results       JSONB       NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (asset_id, operator_name, workflow_id)
);
CREATE TABLE IF NOT EXISTS operator_errors (
	id          BIGSERIAL PRIMARY KEY,
	processor   TEXT        NOT NULL,
	inner_error TEXT        NOT NULL,
	message     TEXT        NOT NULL,
	misc        JSONB,
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS detection_stats (
	id           BIGSERIAL PRIMARY KEY,
	operator     TEXT             NOT NULL,
	detector     TEXT             NOT NULL,
	asset_id     TEXT             NOT NULL,
	workflow_id  TEXT             NOT NULL,
	num_specs    INTEGER          NOT NULL,
	specs_xy     JSONB            NOT NULL,
	proc_seconds DOUBLE PRECISION NOT NULL,
	created_at   TIMESTAMPTZ      NOT NULL
);`

type postgresService struct {
	CfgSvc config.IService
	pool   *pgxpool.Pool
}

// NewPostgres connects to the dataplane database and makes sure the tables exist.
func NewPostgres(ctx context.Context, cfgsvc config.IService) (IService, error) {
	pool, err := pgxpool.New(ctx, cfgsvc.GetDatabaseURL())
	if err != nil {
		return nil, xerrors.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, xerrors.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, xerrors.Errorf("failed to create schema: %w", err)
	}

	return &postgresService{
		CfgSvc: cfgsvc,
		pool:   pool,
	}, nil
}

func (svc *postgresService) RetrieveAssetMetadata(ctx context.Context, assetID, operatorName string) (map[string]interface{}, error) {
	var raw []byte
	err := svc.pool.QueryRow(ctx,
		`SELECT results FROM asset_metadata
		 WHERE asset_id = $1 AND operator_name = $2
		 ORDER BY created_at DESC LIMIT 1`,
		assetID, operatorName).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Errorf("query asset metadata: %w", err)
	}

	results := map[string]interface{}{}
	if err := json.Unmarshal(raw, &results); err != nil {
		return nil, xerrors.Errorf("decode asset metadata: %w", err)
	}

	return map[string]interface{}{
		"results": results,
	}, nil
}

func (svc *postgresService) StoreAssetMetadata(ctx context.Context, assetID, operatorName, workflowID string, results map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(results)
	if err != nil {
		return nil, xerrors.Errorf("encode asset metadata: %w", err)
	}

	_, err = svc.pool.Exec(ctx,
		`INSERT INTO asset_metadata (asset_id, operator_name, workflow_id, results, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (asset_id, operator_name, workflow_id)
		 DO UPDATE SET results = EXCLUDED.results, created_at = EXCLUDED.created_at`,
		assetID, operatorName, workflowID, raw, time.Now())
	if err != nil {
		return nil, xerrors.Errorf("insert asset metadata: %w", err)
	}

	return map[string]interface{}{
		"Status":  model.StatusSuccess,
		"AssetId": assetID,
	}, nil
}

func (svc *postgresService) NewError(err interface{}) error {
	customErr, ok := err.(model.CustomError)
	if !ok {
		customErr = model.CustomError{
			Processor: "N/A",
			Message:   fmt.Sprintf("%v", err),
		}
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	misc, mErr := json.Marshal(customErr.Misc)
	if mErr != nil {
		misc = nil
	}

	_, execErr := svc.pool.Exec(context.Background(),
		`INSERT INTO operator_errors (processor, inner_error, message, misc, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		customErr.Processor, inner, customErr.Message, misc, time.Now())
	if execErr != nil {
		return xerrors.Errorf("insert operator error: %w", execErr)
	}
	return nil
}

func (svc *postgresService) NewDetectionStats(stats model.DetectionStats) error {
	specs, err := json.Marshal(stats.SpecsXY)
	if err != nil {
		return xerrors.Errorf("encode specs: %w", err)
	}

	_, err = svc.pool.Exec(context.Background(),
		`INSERT INTO detection_stats (operator, detector, asset_id, workflow_id, num_specs, specs_xy, proc_seconds, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		stats.Operator, stats.Detector, stats.AssetID, stats.WorkflowID, stats.NumSpecs, specs, stats.ProcSeconds, time.Now())
	if err != nil {
		return xerrors.Errorf("insert detection stats: %w", err)
	}
	return nil
}

func (svc *postgresService) Close() {
	if svc.pool != nil {
		svc.pool.Close()
	}
}
