package models

// PredictionRequest carries the property features a client submits to
// the prediction endpoint. Binding tags reject malformed requests before
// they reach the model.
type PredictionRequest struct {
	BuildingArea     float64 `json:"building_area" binding:"required,gte=0"`
	MainRooms        int     `json:"main_rooms" binding:"gte=0"`
	LandArea         float64 `json:"land_area" binding:"gte=0"`
	PropertyTypeCode int     `json:"property_type_code" binding:"required,min=1,max=4"`
	DepartmentCode   int     `json:"department_code" binding:"required,min=1,max=976"`
}

// PredictionResponse is the estimated sale price plus the quality
// metrics of the model that produced it.
type PredictionResponse struct {
	EstimatedPrice float64 `json:"estimated_price"`
	ModelKind      string  `json:"model_kind"`
	R2             float64 `json:"r2"`
	RMSE           float64 `json:"rmse"`
	TrainedOn      int     `json:"trained_on"`
}
