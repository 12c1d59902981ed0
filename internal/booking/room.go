package booking

import (
	"context"
	"errors"
	"strings"

	"deora-backend/internal/models"

	"gorm.io/gorm"
)

type RoomInput struct {
	Number      string            `json:"number"`
	Type        string            `json:"type"`
	Floor       *int              `json:"floor"`
	Capacity    int               `json:"capacity"`
	Price       float64           `json:"price"`
	Status      models.RoomStatus `json:"status"`
	Description string            `json:"description"`
}

func (s *Service) ListRooms(ctx context.Context, status models.RoomStatus) ([]models.Room, error) {
	q := s.db.WithContext(ctx).Order("number")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var rooms []models.Room
	if err := q.Find(&rooms).Error; err != nil {
		return nil, err
	}
	return rooms, nil
}

func (s *Service) CreateRoom(ctx context.Context, in RoomInput) (*models.Room, error) {
	in.Number = strings.TrimSpace(in.Number)
	if in.Number == "" || in.Price < 0 || in.Capacity < 0 {
		return nil, errors.New("room number is required and price/capacity must not be negative")
	}
	if in.Status == "" {
		in.Status = models.RoomAvailable
	}
	if !in.Status.Valid() {
		return nil, ErrInvalidRoomStatus
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Room{}).Where("number = ?", in.Number).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, ErrDuplicateRoom
	}

	room := &models.Room{
		Number:      in.Number,
		Type:        in.Type,
		Floor:       in.Floor,
		Capacity:    in.Capacity,
		Price:       in.Price,
		Status:      in.Status,
		Description: in.Description,
	}
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		return nil, err
	}
	return room, nil
}

func (s *Service) UpdateRoom(ctx context.Context, id uint, in RoomInput) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}

	if n := strings.TrimSpace(in.Number); n != "" && n != room.Number {
		var count int64
		if err := s.db.WithContext(ctx).Model(&models.Room{}).Where("number = ? AND id <> ?", n, id).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrDuplicateRoom
		}
		room.Number = n
	}
	if in.Type != "" {
		room.Type = in.Type
	}
	if in.Floor != nil {
		room.Floor = in.Floor
	}
	if in.Capacity > 0 {
		room.Capacity = in.Capacity
	}
	if in.Price > 0 {
		room.Price = in.Price
	}
	if in.Status != "" {
		if !in.Status.Valid() {
			return nil, ErrInvalidRoomStatus
		}
		room.Status = in.Status
	}
	if in.Description != "" {
		room.Description = in.Description
	}

	if err := s.db.WithContext(ctx).Save(&room).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

// DeleteRoom refuses to remove a room that still has blocking bookings.
func (s *Service) DeleteRoom(ctx context.Context, id uint) error {
	active, err := s.ActiveForRoom(ctx, id)
	if err != nil {
		return err
	}
	if active != nil {
		return ErrRoomInUse
	}
	res := s.db.WithContext(ctx).Delete(&models.Room{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRoomNotFound
	}
	return nil
}
