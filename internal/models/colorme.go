package models

// Shop mirrors the shop resource of the ColorMe Shop API.
type Shop struct {
	ID                   string  `json:"id"`
	State                string  `json:"state"`
	DomainPlan           string  `json:"domain_plan"`
	ContractPlan         string  `json:"contract_plan"`
	ContractStartDate    int64   `json:"contract_start_date"`
	ContractEndDate      int64   `json:"contract_end_date"`
	ContractTerm         *int    `json:"contract_term"`
	LastLoginDate        int64   `json:"last_login_date"`
	SetupDate            int64   `json:"setup_date"`
	MakeDate             int64   `json:"make_date"`
	URL                  string  `json:"url"`
	OpenState            string  `json:"open_state"`
	MobileOpenState      string  `json:"mobile_open_state"`
	Name                 string  `json:"name"`
	Introduction         *string `json:"introduction"`
	Postal               string  `json:"postal"`
	PrefectureID         int     `json:"prefecture_id"`
	Address              string  `json:"address"`
	Mail                 string  `json:"mail"`
	Tel                  string  `json:"tel"`
	Tel2                 *string `json:"tel2"`
	Fax                  *string `json:"fax"`
	BusinessTime         *string `json:"business_time"`
	MinimumOrderQuantity *int    `json:"minimum_order_quantity"`
	Law                  bool    `json:"law"`
}

// ShopResponse wraps GET /shop.json.
type ShopResponse struct {
	Shop Shop `json:"shop"`
}

// Product is a catalog item.
type Product struct {
	ID              int64            `json:"id"`
	AccountID       string           `json:"account_id"`
	Name            string           `json:"name"`
	Price           int64            `json:"price"`
	SalePrice       *int64           `json:"sale_price"`
	MembersPrice    *int64           `json:"members_price"`
	Cost            *int64           `json:"cost"`
	Weight          int              `json:"weight"`
	Taxable         bool             `json:"taxable"`
	StockManaged    bool             `json:"stock_managed"`
	StockQuantity   *int             `json:"stock_quantity"`
	FewNum          *int             `json:"few_num"`
	ModelNumber     *string          `json:"model_number"`
	SimpleExplain   *string          `json:"simple_explain"`
	Explain         *string          `json:"explain"`
	Published       bool             `json:"published"`
	Sort            int              `json:"sort"`
	MakeDate        int64            `json:"make_date"`
	UpdateDate      int64            `json:"update_date"`
	SalesPeriodFrom *int64           `json:"sales_period_from"`
	SalesPeriodTo   *int64           `json:"sales_period_to"`
	Unit            *string          `json:"unit"`
	MaxQuantity     *int             `json:"max_quantity"`
	GroupIDs        []int64          `json:"group_ids"`
	Images          []ProductImage   `json:"images"`
	Options         []ProductOption  `json:"options"`
	Variants        []ProductVariant `json:"variants"`
}

type ProductImage struct {
	Src       string `json:"src"`
	Position  int    `json:"position"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type ProductOption struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Position int      `json:"position"`
	Values   []string `json:"values"`
}

type ProductVariant struct {
	ID            int64    `json:"id"`
	ProductID     int64    `json:"product_id"`
	Price         *int64   `json:"price"`
	StockQuantity *int     `json:"stock_quantity"`
	OptionValues  []string `json:"option_values"`
}

// Stock is one product or variant stock level.
type Stock struct {
	ProductID     int64  `json:"product_id"`
	VariantID     *int64 `json:"variant_id"`
	StockQuantity int    `json:"stock_quantity"`
}

// Sale is an order.
type Sale struct {
	ID                  int64        `json:"id"`
	AccountID           string       `json:"account_id"`
	CustomerID          *int64       `json:"customer_id"`
	SaleDeliveryID      int64        `json:"sale_delivery_id"`
	AcceptedStatus      string       `json:"accepted_status"`
	AcceptedMailState   string       `json:"accepted_mail_state"`
	PaidStatus          string       `json:"paid_status"`
	PaidMailState       string       `json:"paid_mail_state"`
	DeliveredStatus     string       `json:"delivered_status"`
	DeliveredMailState  string       `json:"delivered_mail_state"`
	Cancelled           bool         `json:"cancelled"`
	TotalPrice          int64        `json:"total_price"`
	ProductTotalPrice   int64        `json:"product_total_price"`
	DeliveryTotalCharge int64        `json:"delivery_total_charge"`
	Fee                 int64        `json:"fee"`
	Tax                 int64        `json:"tax"`
	Discount            int64        `json:"discount"`
	GrantedPoints       int64        `json:"granted_points"`
	UsedPoints          int64        `json:"used_points"`
	AcceptedDate        int64        `json:"accepted_date"`
	AcceptedDateToPay   *int64       `json:"accepted_date_to_pay"`
	PaidDate            *int64       `json:"paid_date"`
	DeliveredDate       *int64       `json:"delivered_date"`
	CancelledDate       *int64       `json:"cancelled_date"`
	Memo                *string      `json:"memo"`
	CustomerMemo        *string      `json:"customer_memo"`
	Details             []SaleDetail `json:"details"`
	Delivery            SaleDelivery `json:"delivery"`
}

type SaleDetail struct {
	ID                 int64   `json:"id"`
	SaleID             int64   `json:"sale_id"`
	ProductID          int64   `json:"product_id"`
	ProductName        string  `json:"product_name"`
	ProductModelNumber *string `json:"product_model_number"`
	ProductPrice       int64   `json:"product_price"`
	ProductNum         int     `json:"product_num"`
	ProductCost        *int64  `json:"product_cost"`
	OptionPrice        int64   `json:"option_price"`
	OptionDiscount     int64   `json:"option_discount"`
	SubtotalPrice      int64   `json:"subtotal_price"`
}

type SaleDelivery struct {
	ID             int64   `json:"id"`
	SaleID         int64   `json:"sale_id"`
	Name           string  `json:"name"`
	Postal         string  `json:"postal"`
	PrefectureID   int     `json:"prefecture_id"`
	Address        string  `json:"address"`
	Tel            string  `json:"tel"`
	DeliveryMethod string  `json:"delivery_method"`
	DeliveryDate   *string `json:"delivery_date"`
	DeliveryTime   *string `json:"delivery_time"`
}

// SalesStat is one bucket of GET /sales/stat.json.
type SalesStat struct {
	Date                  string `json:"date"`
	SalesCount            int64  `json:"sales_count"`
	SalesAmount           int64  `json:"sales_amount"`
	SalesAmountWithoutTax int64  `json:"sales_amount_without_tax"`
	DiscountAmount        int64  `json:"discount_amount"`
	ReturnedCount         int64  `json:"returned_count"`
	ReturnedAmount        int64  `json:"returned_amount"`
}

type Customer struct {
	ID           int64   `json:"id"`
	AccountID    string  `json:"account_id"`
	Name         string  `json:"name"`
	Furigana     *string `json:"furigana"`
	Email        string  `json:"email"`
	Postal       string  `json:"postal"`
	PrefectureID int     `json:"prefecture_id"`
	Address      string  `json:"address"`
	Tel          string  `json:"tel"`
	Tel2         *string `json:"tel2"`
	Points       int64   `json:"points"`
	Member       bool    `json:"member"`
	MailMagazine bool    `json:"mail_magazine"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

type ShopCoupon struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	DiscountType  string `json:"discount_type"`
	DiscountValue int64  `json:"discount_value"`
	Enabled       bool   `json:"enabled"`
	UsageLimit    *int64 `json:"usage_limit"`
	UsageCount    int64  `json:"usage_count"`
	StartDate     *int64 `json:"start_date"`
	EndDate       *int64 `json:"end_date"`
	CreatedAt     int64  `json:"created_at"`
	UpdatedAt     int64  `json:"updated_at"`
}

type Category struct {
	ID        int64  `json:"id"`
	ParentID  *int64 `json:"parent_id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Visible   bool   `json:"visible"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Group struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

type Delivery struct {
	ID                  int64   `json:"id"`
	Name                string  `json:"name"`
	ChargeType          string  `json:"charge_type"`
	ChargeValue         int64   `json:"charge_value"`
	CODFlag             bool    `json:"cod_flag"`
	TimeSpecifyFlag     bool    `json:"time_specify_flag"`
	Memo                *string `json:"memo"`
	PreferredDateFlag   bool    `json:"preferred_date_flag"`
	PreferredPeriodFlag bool    `json:"preferred_period_flag"`
	SlipNumberFlag      bool    `json:"slip_number_flag"`
	SortNumber          int     `json:"sort_number"`
	Visible             bool    `json:"visible"`
}

type Payment struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	FeeType  string `json:"fee_type"`
	FeeValue int64  `json:"fee_value"`
	Position int    `json:"position"`
	Visible  bool   `json:"visible"`
}

// Gift holds the wrapping and noshi settings.
type Gift struct {
	Noshi        bool `json:"noshi"`
	NoshiText    bool `json:"noshi_text"`
	GiftWrapping bool `json:"gift_wrapping"`
}
