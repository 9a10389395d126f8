package common

import "errors"

var (
	// ErrInvalidAsset is returned for zero, duplicated or unsupported asset
	// references.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrInsufficientAmount is returned when deposit is below the minimum.
	ErrInsufficientAmount = errors.New("insufficient amount")
	// ErrInsufficientBalance is returned when holder has less shares than
	// requested.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientSupply is returned when no shares of the asset are
	// outstanding.
	ErrInsufficientSupply = errors.New("insufficient supply")
	// ErrDepletedPool is returned when shares are outstanding but the vault
	// holds nothing of the asset, so no exchange rate exists.
	ErrDepletedPool = errors.New("depleted pool")
	// ErrShareOverflow is returned when shares of the amount or the total
	// supply do not fit 256 bits.
	ErrShareOverflow = errors.New("share supply overflow")
	// ErrUnauthorized appears when administrative method is called not by
	// the owner.
	ErrUnauthorized = errors.New("owner witness check failed")
	// ErrInvalidOwner is returned on attempt to hand ownership to zero
	// identity.
	ErrInvalidOwner = errors.New("invalid owner")

	// ErrAlreadyInitialized is returned on repeated initialization.
	ErrAlreadyInitialized = errors.New("vault is already initialized")
	// ErrNotInitialized is returned when state has never been initialized.
	ErrNotInitialized = errors.New("vault is not initialized")
	// ErrUpgrading is returned for calls made while upgrade is in progress.
	ErrUpgrading = errors.New("vault is being upgraded")
	// ErrVersionMismatch is returned by CheckVersion when previous version is
	// not the one new logic migrates from.
	ErrVersionMismatch = errors.New("previous version mismatch")
	// ErrAlreadyUpdated is returned by CheckVersion if current version equals
	// to version vault is being updated to.
	ErrAlreadyUpdated = errors.New("vault is already of the requested version")
	// ErrUnknownVersion is returned when logic of the requested version is not
	// known.
	ErrUnknownVersion = errors.New("unknown logic version")
	// ErrIncompatibleLayout is returned when new logic reorders, retypes or
	// drops persisted fields.
	ErrIncompatibleLayout = errors.New("incompatible storage layout")
	// ErrUnsupportedMethod is returned when active logic does not provide
	// requested method.
	ErrUnsupportedMethod = errors.New("method is not supported by active logic")
)
