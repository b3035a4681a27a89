// Package config centralizes all tunable game parameters.
package config

import "time"

// Grid
const (
	GridSize = 10 // Board is GridSize x GridSize cells
)

// Economy
const (
	StartingGold    = 100
	StartingLives   = 10
	WaveClearBonus  = 50
	UpgradeCostRate = 1.5 // Upgrade price and new cost as a multiple of current cost
	SellRefundRate  = 0.7 // Refund (floored) as a multiple of current cost
	UpgradeDamage   = 5
	UpgradeRange    = 0.5
)

// Waves
const (
	WaveCount      = 5
	WaveBaseCount  = 5 // Enemies in the first wave
	WaveCountStep  = 2 // Extra enemies per subsequent wave
	LeakPenalty    = 1 // Lives lost per enemy reaching the end of the route
	TickInterval   = time.Second
	EncodedPreview = 30 // Characters of ciphertext shown before decryption
)

// Authorization
const (
	AuthLatency       = 1500 * time.Millisecond
	AuthValidity      = 30 * 24 * time.Hour
	PublicKeyHexChars = 2000
)

// Combat (opt-in extension)
const (
	SlowFactor   = 0.5  // Speed multiplier applied once by a slow tower hit
	MinSpeedRate = 0.25 // Floor for slowed speed as a fraction of base speed
)

// Console
const (
	CommandRate  = 5 * time.Second // Decrypt commands refill one token per interval
	CommandBurst = 4
)
