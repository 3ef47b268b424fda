// Package review compares pull requests with the design documents they link.
//
// A [Pipeline] fetches the pull request, finds the design document URL in its
// description ([ExtractDesignDocURL]), reads the document, redacts secrets in
// the diff, asks the model for a review and posts the result as a comment.
// Pull requests without a design document link get a notice instead of a
// review; that is not an error.
//
// [Pipeline.RunBatch] reviews several pull requests sequentially.
package review
