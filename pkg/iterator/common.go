package iterator

import "heapstore/pkg/tuple"

// Iterate drives the HasNext/Next loop over iter, skipping nil tuples.
// processFunc returns false to stop early; an error stops iteration and is
// returned.
func Iterate(iter TupleIterator, processFunc func(*tuple.Tuple) (continueLooping bool, err error)) error {
	for {
		hasNext, err := iter.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}

		tup, err := iter.Next()
		if err != nil {
			return err
		}
		if tup == nil {
			continue
		}

		shouldContinue, err := processFunc(tup)
		if err != nil {
			return err
		}
		if !shouldContinue {
			return nil
		}
	}
}

// ForEach applies processFunc to each remaining tuple. The iterator must be
// open.
func ForEach(iter TupleIterator, processFunc func(*tuple.Tuple) error) error {
	return Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		return true, processFunc(tup)
	})
}

// Take returns up to n tuples from the iterator.
func Take(iter TupleIterator, n int) ([]*tuple.Tuple, error) {
	tuples := make([]*tuple.Tuple, 0, n)
	if n <= 0 {
		return tuples, nil
	}

	err := Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		tuples = append(tuples, tup)
		return len(tuples) < n, nil
	})

	return tuples, err
}

// reduce folds accumulator over the remaining tuples.
func reduce[T any](iter TupleIterator, initial T, accumulator func(T, *tuple.Tuple) (T, error)) (T, error) {
	result := initial

	err := Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		var err error
		result, err = accumulator(result, tup)
		return true, err
	})

	return result, err
}

// Count consumes the iterator and returns the number of tuples.
func Count(iter TupleIterator) (int, error) {
	return reduce(iter, 0, func(count int, _ *tuple.Tuple) (int, error) {
		return count + 1, nil
	})
}

// Collect consumes the iterator and returns every tuple.
func Collect(iter TupleIterator) ([]*tuple.Tuple, error) {
	var results []*tuple.Tuple

	err := Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		results = append(results, tup)
		return true, nil
	})

	return results, err
}
