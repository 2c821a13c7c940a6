package chart

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func series(n int) ([]int64, []float64, []float64) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).UnixMilli()
	ts := make([]int64, n)
	closes := make([]float64, n)
	ind := make([]float64, n)
	for i := 0; i < n; i++ {
		ts[i] = base + int64(i)*60_000
		closes[i] = 100 + float64(i)
		ind[i] = 99 + float64(i)
	}
	return ts, closes, ind
}

func TestProjector_Windows(t *testing.T) {
	p, err := NewProjector(5, 2)
	require.NoError(t, err)
	p.SetLocation(time.UTC)

	ts, closes, ind := series(10)
	c := p.Project(ts, closes, ind, "EMA(30)")

	assert.Equal(t, []float64{105, 106, 107, 108, 109}, c.Left.Price)
	assert.Equal(t, []float64{104, 105, 106, 107, 108}, c.Left.Indicator)
	assert.Equal(t, "10:05:00", c.Left.Labels[0])
	assert.Equal(t, 105.0, c.Left.MinY)
	assert.Equal(t, "5min Price & EMA(30)", c.Left.Title)

	assert.Equal(t, []float64{108, 109}, c.Right.Price)
	assert.Equal(t, []string{"10:08:00", "10:09:00"}, c.Right.Labels)
}

func TestProjector_ShortHistory(t *testing.T) {
	p, err := NewProjector(DefaultLeftWindow, DefaultRightWindow)
	require.NoError(t, err)

	// Окно N=180, история M=7 < N: ряд длины M
	ts, closes, ind := series(7)
	c := p.Project(ts, closes, ind, "EMA(30)")

	assert.Len(t, c.Left.Price, 7)
	assert.Len(t, c.Left.Indicator, 7)
	assert.Len(t, c.Left.Labels, 7)
	assert.Len(t, c.Right.Price, 7)
}

func TestProjector_WindowChangeAppliesNextProjection(t *testing.T) {
	p, err := NewProjector(DefaultLeftWindow, DefaultRightWindow)
	require.NoError(t, err)
	ts, closes, ind := series(40)

	assert.Len(t, p.Project(ts, closes, ind, "").Right.Price, 30)

	require.NoError(t, p.SetRight(10))
	assert.Len(t, p.Project(ts, closes, ind, "").Right.Price, 10)
}

func TestProjector_Empty(t *testing.T) {
	p, err := NewProjector(DefaultLeftWindow, DefaultRightWindow)
	require.NoError(t, err)

	c := p.Project(nil, nil, nil, "EMA(30)")
	assert.True(t, c.Left.Empty())
	assert.True(t, c.Right.Empty())
	assert.Equal(t, 0.0, c.Left.MinY)
}

func TestProjector_InvalidWindow(t *testing.T) {
	_, err := NewProjector(0, 30)
	assert.True(t, errors.Is(err, ErrInvalidWindow))

	p, err := NewProjector(10, 10)
	require.NoError(t, err)
	assert.Error(t, p.SetLeft(-1))
	assert.Equal(t, 10, p.Left())
}
