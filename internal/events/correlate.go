package events

import "extrinsicScope/internal/model"

// Correlate joins decoded extrinsics with the events attributed to their
// index. Event groups without a matching extrinsic are dropped; extrinsics
// without events get a nil Events field.
func Correlate(blockNumber uint64, extrinsics []model.ParsedExtrinsic, byIndex map[uint32]*model.ExtrinsicEvents) []model.BlockActivity {
	out := make([]model.BlockActivity, 0, len(extrinsics))
	for i, parsed := range extrinsics {
		index := uint32(i)
		out = append(out, model.BlockActivity{
			BlockNumber:    blockNumber,
			ExtrinsicIndex: index,
			Extrinsic:      parsed,
			Events:         byIndex[index],
		})
	}
	return out
}
