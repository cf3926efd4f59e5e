package stellartrace

import "errors"

// Sentinel errors for the error taxonomy of §7. Callers compare with
// errors.Is; none of these are expected to unwind past the component that
// produces them except where the contract explicitly says so (ingest
// write failures).
var (
	// ErrPostingListMissing is returned by fetchPostings when neither the
	// offset index nor the fallback scan locates the requested WID.
	ErrPostingListMissing = errors.New("stellartrace: posting list missing for word")

	// ErrBarrelTextMissing is returned when a barrel's text file cannot be
	// opened at query time. The term contributes no postings; it does not
	// abort the query.
	ErrBarrelTextMissing = errors.New("stellartrace: barrel text file missing")

	// ErrDocMapEntryMissing names the case of an EDID winning the
	// intersection with no corresponding DocMap entry. hydrate does not
	// return it: it logs the case and omits that result.
	ErrDocMapEntryMissing = errors.New("stellartrace: docmap entry missing for document")

	// ErrHydrateFailed names the case of a corpus read during hydrate
	// falling short of the recorded length or the offset lying past EOF.
	// hydrate does not return it: it logs the case and omits that result.
	ErrHydrateFailed = errors.New("stellartrace: failed to read document from corpus")

	// ErrIngestWriteFailed is returned by addDocument when any durable
	// write step fails; the caller MUST treat the document as not
	// ingested, with no guarantee of rollback of partial writes.
	ErrIngestWriteFailed = errors.New("stellartrace: ingest write failed")

	// ErrMalformedPosting is returned internally when a posting token
	// fails to parse as WID(TF,MASK); callers skip the token and continue
	// the line.
	ErrMalformedPosting = errors.New("stellartrace: malformed posting token")
)
