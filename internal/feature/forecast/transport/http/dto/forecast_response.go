// Package dto はforecastフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// ForecastResponse は/sales/:months と /income/:months のレスポンスDTOです。
// 値が存在しない位置はnullとしてシリアライズされます。
type ForecastResponse struct {
	Original   []*float64 `json:"original"`   // 実績値（延長した将来月はnull）
	Forecast   []*float64 `json:"forecast"`   // 予測値（予測範囲外はnull）
	StartMonth string     `json:"startMonth"` // 系列の開始月ラベル
	EndMonth   string     `json:"endMonth"`   // 予測の終了月ラベル（dd/mm/yyyy）
}

// ErrorResponse はエラー時の共通レスポンスです。
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse は処理結果のメッセージを返すレスポンスです。
type MessageResponse struct {
	Message string `json:"message"`
}
