package analysis

// Batch is a contiguous sub-sequence of the request's files, executed in one
// completion call. Batches never overlap and their concatenation equals the
// original file sequence.
type Batch struct {
	Index int // 1-based, used in "batch i of n" narration
	Files []FileRef
}

// DefaultMaxInline is the largest file count analyzed in a single call.
const DefaultMaxInline = 3

// DefaultBatchSize is the per-batch file count once a request exceeds
// DefaultMaxInline. Kept at 2 to bound per-call payload size.
const DefaultBatchSize = 2

// Plan groups files into ordered batches. Requests of maxInline files or
// fewer get a single batch; larger requests are split into consecutive
// batches of batchSize, the last possibly smaller.
func Plan(files []FileRef, maxInline, batchSize int) ([]Batch, error) {
	if len(files) == 0 {
		return nil, ErrNoValidInput
	}
	if maxInline <= 0 {
		maxInline = DefaultMaxInline
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	if len(files) <= maxInline {
		return []Batch{{Index: 1, Files: files}}, nil
	}

	var batches []Batch
	for start := 0; start < len(files); start += batchSize {
		end := start + batchSize
		if end > len(files) {
			end = len(files)
		}
		batches = append(batches, Batch{
			Index: len(batches) + 1,
			Files: files[start:end],
		})
	}

	return batches, nil
}
