/*
Package vault defines logic of the share vault and the protocol shared by all
its versions.

Vault state is a stable set of persisted fields (see package schema). Logic
of a particular version is stateless: every call gets an Invocation carrying
caller identity, transactional scope over the state and the execution
environment. Logic is installed and swapped by package proxy.

Deposits mint shares before the asset is pulled into custody, withdrawals
burn shares before the asset is pushed out. Assets may call back into the
vault while transferring and always observe the ledger already mutated.

# Events

Deposit:

	Deposit(caller, asset, amount, shares)

Withdrawal:

	Withdrawal(caller, asset, shares, amount)

AssetChanged is emitted when the asset becomes acceptable for deposits:

	AssetChanged(asset)

OwnershipTransferred:

	OwnershipTransferred(previous, next)

Upgraded is emitted by the proxy when logic is swapped:

	Upgraded(from, to)
*/
package vault
