package service

import (
	"encoding/json"
	"time"

	"github.com/ArnovZ080/guildboard/pkg/models"
	"github.com/ArnovZ080/guildboard/pkg/storage"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// KnownProviders are the storage providers a data room may be backed by.
var KnownProviders = map[string]bool{
	"gdrive":   true,
	"notion":   true,
	"dropbox":  true,
	"onedrive": true,
	"local":    true,
}

// DataRoomService manages provider-backed storage connections.
type DataRoomService struct {
	store  storage.Store
	logger Logger
}

func NewDataRoomService(store storage.Store, logger Logger) *DataRoomService {
	return &DataRoomService{
		store:  store,
		logger: logger,
	}
}

func (s *DataRoomService) List() ([]models.DataRoom, error) {
	return s.store.ListDataRooms()
}

func (s *DataRoomService) Get(id string) (models.DataRoom, error) {
	return s.store.GetDataRoom(id)
}

// Create validates and persists a new data room record.
func (s *DataRoomService) Create(name, provider string, config json.RawMessage, readOnly bool) (room models.DataRoom, err error) {
	if name == "" {
		return models.DataRoom{}, errors.New("data room name cannot be empty")
	}
	if !KnownProviders[provider] {
		return models.DataRoom{}, errors.Errorf("unknown provider '%s'", provider)
	}
	if len(config) == 0 {
		config = json.RawMessage("{}")
	} else if !json.Valid(config) {
		return models.DataRoom{}, errors.New("config must be valid JSON")
	}

	txStore, err := s.store.Begin()
	if err != nil {
		return models.DataRoom{}, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	room = models.DataRoom{
		ID:        uuid.NewString(),
		Name:      name,
		Provider:  provider,
		Config:    config,
		ReadOnly:  readOnly,
		CreatedAt: time.Now(),
	}
	if err = txStore.SaveDataRoom(room); err != nil {
		return models.DataRoom{}, err
	}
	s.logger.Infof("Created data room '%s' (%s) with ID %s", name, provider, room.ID)
	return room, nil
}

// Delete removes a data room by ID.
func (s *DataRoomService) Delete(id string) (err error) {
	txStore, err := s.store.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := txStore.Rollback(); rollbackErr != nil {
				s.logger.Errorf("Failed to rollback after error: %v (original error: %v)", rollbackErr, err)
			}
			return
		}
		if commitErr := txStore.Commit(); commitErr != nil {
			s.logger.Errorf("Failed to commit: %v", commitErr)
			err = commitErr
		}
	}()

	if err = txStore.DeleteDataRoom(id); err != nil {
		return err
	}
	s.logger.Infof("Deleted data room %s", id)
	return nil
}
