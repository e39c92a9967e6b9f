package domain

const (
	// Blockchain constants
	ETHEREUM_ZERO_ADDRESS = "0x0000000000000000000000000000000000000000"

	// MAX_BLOCK_RANGE is the widest block window requested from the ledger
	// in a single log query
	MAX_BLOCK_RANGE = uint64(1000)

	// MAX_TRACE_DEPTH bounds upstream lineage walks so a corrupted parent
	// link can never loop forever
	MAX_TRACE_DEPTH = 1000

	// MAX_TRACE_NODES caps the total batches visited by a downstream
	// distribution walk
	MAX_TRACE_NODES = 10000

	// SEARCH_PAGE_SIZE caps fuzzy search result lists
	SEARCH_PAGE_SIZE = 50

	// MAX_EVENT_ATTEMPTS is the retry budget for transient event
	// application errors before dead-lettering
	MAX_EVENT_ATTEMPTS = 3

	// MAX_ALERT_ATTEMPTS is the delivery budget for one alert queue entry
	MAX_ALERT_ATTEMPTS = 3
)
