// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios and map
// them onto HTTP statuses without string matching.
package repository

import "errors"

// ErrAlreadyParked is returned when an entry is registered for a plate
// that already has a Parked vehicle in the same tenant.
var ErrAlreadyParked = errors.New("vehicle is already parked")

// ErrVehicleNotParked is returned when an exit is registered for a plate
// with no Parked vehicle in the tenant.
var ErrVehicleNotParked = errors.New("no parked vehicle with this plate")

// ErrSlotNotAvailable is returned when an entry names a slot whose status
// is not Available.
var ErrSlotNotAvailable = errors.New("parking slot is not available")

// ErrSlotOccupied is returned when a delete or move cannot be performed
// on a slot that currently holds a vehicle.
var ErrSlotOccupied = errors.New("parking slot is occupied")

// ErrSectionOccupied is returned when a section delete is attempted while
// any of its slots is occupied.
var ErrSectionOccupied = errors.New("section has occupied slots")

// ErrCapacityBelowOccupancy is returned when a section resize would set
// capacity below the number of occupied slots.
var ErrCapacityBelowOccupancy = errors.New("capacity below occupied count")
