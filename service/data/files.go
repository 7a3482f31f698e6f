package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/spec-operators/model"
	"github.com/khaledhikmat/spec-operators/service/config"
	"golang.org/x/xerrors"
)

type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

type assetDocument struct {
	AssetID      string                 `json:"assetId"`
	OperatorName string                 `json:"operatorName"`
	WorkflowID   string                 `json:"workflowId"`
	Results      map[string]interface{} `json:"results"`
	Timestamp    int64                  `json:"timestamp"`
}

func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) RetrieveAssetMetadata(_ context.Context, assetID, operatorName string) (map[string]interface{}, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	data, err := os.ReadFile(svc.assetFile(assetID, operatorName))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, xerrors.Errorf("read asset metadata: %w", err)
	}

	doc := map[string]interface{}{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, xerrors.Errorf("decode asset metadata: %w", err)
	}

	return doc, nil
}

func (svc *filesDBService) StoreAssetMetadata(_ context.Context, assetID, operatorName, workflowID string, results map[string]interface{}) (map[string]interface{}, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	doc := assetDocument{
		AssetID:      assetID,
		OperatorName: operatorName,
		WorkflowID:   workflowID,
		Results:      results,
		Timestamp:    time.Now().Unix(),
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, xerrors.Errorf("encode asset metadata: %w", err)
	}

	output := svc.assetFile(assetID, operatorName)
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return nil, xerrors.Errorf("create asset folder: %w", err)
	}

	// Write the JSON data to the file (with truncation)
	if err := os.WriteFile(output, data, 0644); err != nil {
		return nil, xerrors.Errorf("write asset metadata: %w", err)
	}

	return map[string]interface{}{
		"Status":  model.StatusSuccess,
		"AssetId": assetID,
	}, nil
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	if custom, ok := err.(model.CustomError); ok {
		customErr = custom
	} else if e, ok := err.(error); ok {
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	} else {
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", err)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	return newEntity(errorData, "errors", svc.CfgSvc)
}

func (svc *filesDBService) NewDetectionStats(stats model.DetectionStats) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	stats.Timestamp = time.Now().Unix()
	return newEntity(stats, "detection-stats", svc.CfgSvc)
}

func (svc *filesDBService) Close() {}

func (svc *filesDBService) assetFile(assetID, operatorName string) string {
	return filepath.Join(svc.CfgSvc.GetDataFolder(), "assets", filepath.Base(assetID), filepath.Base(operatorName)+".json")
}

func newEntity[T any](entity T, filename string, cfgsvc config.IService) error {
	entities, err := retrieveEntities[T](filename, cfgsvc)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfgsvc.GetDataFolder(), 0755); err != nil {
		return err
	}

	// Write the JSON data to the file (with truncation)
	output := filepath.Join(cfgsvc.GetDataFolder(), filename+".json")
	return os.WriteFile(output, data, 0644)
}

func retrieveEntities[T any](filename string, cfgsvc config.IService) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(filepath.Join(cfgsvc.GetDataFolder(), filename+".json"))
	if err != nil {
		// WARNING: File not found, return empty slice
		return entities, nil
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}

	return entities, nil
}
