package grpcstore

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc/metadata"

	"xdao.co/ipld/cidutil"
)

// HashMetadataKey carries the multihash code for Put as a decimal string.
const HashMetadataKey = "x-ipld-mhtype"

func withHash(ctx context.Context, mhType uint64) context.Context {
	return metadata.AppendToOutgoingContext(ctx, HashMetadataKey, strconv.FormatUint(mhType, 10))
}

// hashFromContext returns the requested hash function, or cidutil.DefaultHash
// when the caller sent none.
func hashFromContext(ctx context.Context) (uint64, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return cidutil.DefaultHash, nil
	}
	vals := md.Get(HashMetadataKey)
	if len(vals) == 0 {
		return cidutil.DefaultHash, nil
	}
	code, err := strconv.ParseUint(vals[len(vals)-1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", HashMetadataKey, vals[len(vals)-1])
	}
	return code, nil
}
