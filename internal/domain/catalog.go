package domain

// Catalog: статичные данные мастерской: филиалы, цены, склад, ключевые слова.
// Во время диалога только читается.
type Catalog struct {
	ShopName       string      `yaml:"shop_name" json:"shopName" validate:"required"`
	Branches       []Branch    `yaml:"branches" json:"branches" validate:"dive"`
	Prices         Prices      `yaml:"prices" json:"prices"`
	Inventory      []Item      `yaml:"inventory" json:"inventory" validate:"dive"`
	Surcharges     []Surcharge `yaml:"surcharges" json:"surcharges" validate:"dive"`
	RemoteKeywords []string    `yaml:"remote_keywords" json:"remoteKeywords" validate:"min=1,dive,required"`
	ResetKeywords  []string    `yaml:"reset_keywords" json:"resetKeywords" validate:"min=1,dive,required"`
	AIPrefixes     []string    `yaml:"ai_prefixes" json:"aiPrefixes" validate:"dive,required"`
}

type Branch struct {
	ID      string `yaml:"id" json:"id" validate:"required"`
	Name    string `yaml:"name" json:"name" validate:"required"`
	Address string `yaml:"address" json:"address"`
	Phone   string `yaml:"phone" json:"phone"`
	Hours   string `yaml:"hours" json:"hours"`
}

type Prices struct {
	RepairMin    int `yaml:"reparacion_minima" json:"reparacionMinima" validate:"gt=0"`
	Formatting   int `yaml:"formateo" json:"formateo" validate:"gte=0"`
	Cleaning     int `yaml:"limpieza" json:"limpieza" validate:"gte=0"`
	ThermalPaste int `yaml:"pasta_termica" json:"pastaTermica" validate:"gte=0"`
}

type Item struct {
	Key   string `yaml:"key" json:"key" validate:"required"`
	Name  string `yaml:"name" json:"name" validate:"required"`
	Price int    `yaml:"price" json:"price" validate:"gte=0"`
	Stock int    `yaml:"stock" json:"stock" validate:"gte=0"`
}

// Surcharge: надбавка к базовой цене ремонта, если в описании есть любое из слов.
type Surcharge struct {
	Name     string   `yaml:"name" json:"name" validate:"required"`
	Keywords []string `yaml:"keywords" json:"keywords" validate:"min=1,dive,required"`
	Amount   int      `yaml:"amount" json:"amount" validate:"gt=0"`
}

func (c Catalog) Branch(id string) (Branch, bool) {
	for _, b := range c.Branches {
		if b.ID == id {
			return b, true
		}
	}
	return Branch{}, false
}
