package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/port/mocks"
)

func TestHistoryRecorder_FlushesOnClose(t *testing.T) {
	store := mocks.NewHistoryMock(t)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	store.On("RecordStatus", mock.Anything, "v1", domain.VideoStatusCompiling, at).Return(nil).Once()
	store.On("RecordClosure", mock.Anything, "v1", CloseCompleted, at).Return(nil).Once()
	store.On("RecordClosure", mock.Anything, "v2", CloseTransport, at).Return(errors.New("disk full")).Once()

	r := NewHistoryRecorder(store, 4)
	r.RecordStatus("v1", domain.VideoStatusCompiling, at)
	r.RecordClosure("v1", CloseCompleted, at)
	r.RecordClosure("v2", CloseTransport, at)
	r.Close()
	r.Close()
}
