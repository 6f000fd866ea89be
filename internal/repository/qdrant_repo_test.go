package repository

import (
	"testing"

	pb "github.com/qdrant/go-client/qdrant"
)

func TestCollectionVectorSize(t *testing.T) {
	single := &pb.CollectionInfo{
		Config: &pb.CollectionConfig{
			Params: &pb.CollectionParams{
				VectorsConfig: &pb.VectorsConfig{
					Config: &pb.VectorsConfig_Params{
						Params: &pb.VectorParams{Size: 1024, Distance: pb.Distance_Cosine},
					},
				},
			},
		},
	}
	named := &pb.CollectionInfo{
		Config: &pb.CollectionConfig{
			Params: &pb.CollectionParams{
				VectorsConfig: &pb.VectorsConfig{
					Config: &pb.VectorsConfig_ParamsMap{
						ParamsMap: &pb.VectorParamsMap{
							Map: map[string]*pb.VectorParams{"dense": {Size: 768}},
						},
					},
				},
			},
		},
	}

	tests := []struct {
		name   string
		info   *pb.CollectionInfo
		want   uint64
		wantOK bool
	}{
		{"single", single, 1024, true},
		{"named", named, 768, true},
		{"empty", &pb.CollectionInfo{}, 0, false},
		{"nil", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := collectionVectorSize(tt.info)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}
