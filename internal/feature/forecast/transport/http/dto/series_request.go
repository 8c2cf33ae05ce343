package dto

// SeriesPoint は1か月分の観測値です。monthはYYYY-MM-DDまたはYYYY-MM形式です。
type SeriesPoint struct {
	Month string   `json:"month" binding:"required"`
	Value *float64 `json:"value" binding:"required"`
}

// SeriesUpsertRequest はPUT /series/:metric のリクエストボディを表します。
type SeriesUpsertRequest struct {
	Points []SeriesPoint `json:"points" binding:"required,min=1,dive"`
}

// SeriesUpsertResponse は保存した件数を返します。
type SeriesUpsertResponse struct {
	Metric string `json:"metric"`
	Points int    `json:"points"`
}
