// Package reembed recomputes the embeddings of every stored chunk.
//
// It is used after switching the embedding model. Chunks are read in
// ascending id order in batches, embedded with retry and exponential backoff,
// and written back batch by batch, so an interrupted run leaves earlier
// batches updated. A change of vector dimensionality needs the store schema
// to be rebuilt first; the store rejects vectors of the wrong width.
package reembed
