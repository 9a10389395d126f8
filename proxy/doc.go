/*
Package proxy implements the stable vault container.

Proxy owns the vault state and a reference to the active vault logic. Every
public call is an atomic unit: it works in its own transactional scope
which is committed on success and dropped on failure. Logic can be swapped
by the vault owner to any version from the Catalog which is able to serve
the current state and keeps its layout append-only. Optional migration of
the new logic runs in the same scope as the swap.

Assets may call back into the vault while transferring funds. Such calls are
recognized by the context they are made with and run in a scope nested into
the scope of the outer call. Events are published after the outermost call
commits.

# Phases

	V1_ACTIVE --Upgrade--> UPGRADING --commit--> V2_ACTIVE
	                           |
	                           +-----failure---> V1_ACTIVE

Calls made while upgrade is in progress fail with ErrUpgrading.

# Storage

Besides logic fields (see package schema) Proxy keeps version of the active
logic under the reserved implementation key.
*/
package proxy
