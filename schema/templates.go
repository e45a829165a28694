package schema

// Operation-rooted templates. Each mutating entrypoint validates only the
// sub-tree it is about to change, against the narrow template below, with the
// template's own name as the path prefix. The whole-slot template used at mint
// time is rooted at the slot itself and validated with an empty prefix.

// PriceDetailedInfo gates UpdatePriceInfo payloads.
var PriceDetailedInfo = ObjectOf(
	Field{"sale_price", Primitive(Number)},
	Field{"market_price", Primitive(Number)},
	Field{"discount", Primitive(Number)},
	Field{"currency", Primitive(String)},
)

// TicketCheckInfo gates VerifyTicket payloads.
var TicketCheckInfo = ObjectOf(
	Field{"check_point", Primitive(String)},
	Field{"checked_num", Primitive(Number)},
	Field{"check_time", Primitive(String)},
	Field{"operator", Primitive(String)},
)

// TicketIssueInfo gates UpdateIssueTickets payloads.
var TicketIssueInfo = ObjectOf(
	Field{"batch_id", Primitive(String)},
	Field{"issue_num", Primitive(Number)},
	Field{"issue_time", Primitive(String)},
	Field{"channel", Primitive(String)},
)

// TicketStatusInfo gates each element of a TimerUpdateTickets batch.
var TicketStatusInfo = ObjectOf(
	Field{"status", Primitive(Number)},
	Field{"update_time", Primitive(String)},
)

// TicketData gates UpdateTicketInfo payloads.
var TicketData = ObjectOf(
	Field{"seat_info", Primitive(String)},
	Field{"notes", Primitive(String)},
)

// TicketBasicInfo is the immutable zone of a slot, fixed at mint.
var TicketBasicInfo = ObjectOf(
	Field{"ticket_name", Primitive(String)},
	Field{"scenic_spot", Primitive(String)},
	Field{"ticket_type", Primitive(String)},
	Field{"valid_begin", Primitive(String)},
	Field{"valid_end", Primitive(String)},
)

// TicketAdditionalInfo is the mutable zone of a slot. Each section is owned by
// one update entrypoint.
var TicketAdditionalInfo = ObjectOf(
	Field{"price_info", PriceDetailedInfo},
	Field{"ticket_data", TicketData},
	Field{"check_data", ArrayOf(TicketCheckInfo)},
	Field{"issue_data", TicketIssueInfo},
	Field{"status_info", TicketStatusInfo},
)

// TimerTicketUpdate gates TimerUpdateTickets payloads: a batch of per-token
// status updates applied by the scheduled off-chain job.
var TimerTicketUpdate = ArrayOf(ObjectOf(
	Field{"token_id", Primitive(String)},
	Field{"status_info", TicketStatusInfo},
))

// TicketSlot is the whole slot validated at mint time, rooted at the slot
// itself (empty path prefix).
var TicketSlot = ObjectOf(
	Field{"BasicInformation", TicketBasicInfo},
	Field{"AdditionalInformation", TicketAdditionalInfo},
)

// OrderBatch is one stock batch inside an order or refund. available_total_num
// is the off-chain system's expected post-distribution available figure for
// the pre-credit cross-check.
var OrderBatch = ObjectOf(
	Field{"batch_id", Primitive(String)},
	Field{"token_id", Primitive(String)},
	Field{"quantity", Primitive(Number)},
	Field{"available_ratio", Primitive(Number)},
	Field{"total_periods", Primitive(Number)},
	Field{"amount", Primitive(Number)},
	Field{"available_total_num", Primitive(Number)},
)

// OrderInfo gates StoreOrder payloads.
var OrderInfo = ObjectOf(
	Field{"order_id", Primitive(String)},
	Field{"user_id", Primitive(String)},
	Field{"seller_id", Primitive(String)},
	Field{"total_amount", Primitive(Number)},
	Field{"order_time", Primitive(String)},
	Field{"batches", ArrayOf(OrderBatch)},
)

// RefundInfo gates StoreRefund payloads.
var RefundInfo = ObjectOf(
	Field{"refund_id", Primitive(String)},
	Field{"order_id", Primitive(String)},
	Field{"user_id", Primitive(String)},
	Field{"seller_id", Primitive(String)},
	Field{"refund_amount", Primitive(Number)},
	Field{"refund_time", Primitive(String)},
	Field{"batches", ArrayOf(OrderBatch)},
)

// CreditInfo gates StoreCreditInfo payloads. credit_limit and pledge_amount
// may be empty strings; which one is filled selects the operation.
var CreditInfo = ObjectOf(
	Field{"merchant_id", Primitive(String)},
	Field{"owner", Primitive(String)},
	Field{"credit_limit", Primitive(String)},
	Field{"pledge_amount", Primitive(String)},
)

// CreditTransferInfo gates TransferCredit payloads.
var CreditTransferInfo = ObjectOf(
	Field{"trade_no", Primitive(String)},
	Field{"from", Primitive(String)},
	Field{"to", Primitive(String)},
	Field{"amount", Primitive(String)},
)

// PaymentInfo gates PaymentFlow payloads.
var PaymentInfo = ObjectOf(
	Field{"transaction_id", Primitive(String)},
	Field{"merchant_id", Primitive(String)},
	Field{"payer", Primitive(String)},
	Field{"amount", Primitive(String)},
	Field{"pay_type", Primitive(String)},
	Field{"pay_time", Primitive(String)},
)

// ActivateInfo gates each element of an ActivateTickets batch.
var ActivateInfo = ObjectOf(
	Field{"order_id", Primitive(String)},
	Field{"batch_id", Primitive(String)},
	Field{"token_id", Primitive(String)},
	Field{"available_total_num", Primitive(Number)},
	Field{"periods", Primitive(String)},
	Field{"total_periods", Primitive(Number)},
	Field{"amount", Primitive(Number)},
	Field{"total_repayment", Primitive(Number)},
)
