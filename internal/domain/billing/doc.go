// Package billing provides domain models for subscription billing of tenants in a multi-tenant ERP.
//
// This package implements the subscription billing bounded context, which is responsible for:
//   - Pricing tenants against their subscription plan and active user count
//   - Scheduling recurring invoices on the tenant's anniversary (anchor) date
//   - Issuing billing invoices and tracking their payment status
//
// Key Aggregates:
//   - Plan: A subscription tier with included users and monthly/annual pricing
//   - BillingInvoice: A persisted billing preview, immutable apart from its status
//
// Value Objects:
//   - Frequency: Billing cadence (monthly or annual)
//   - Period: Calendar period label an invoice covers (YYYY-MM or YYYY)
//   - BillingPreview: On-demand cost breakdown produced by ComputePlanBilling
//   - AnchorSchedule: Anchor day/month and next due date produced by ComputeNextInvoiceDate
//
// ComputePlanBilling and ComputeNextInvoiceDate are pure functions. Callers supply
// the evaluation time and the active user count, so both are safe for concurrent use.
//
// The billing domain integrates with:
//   - Identity domain: Tenants carry the plan, frequency and anchor fields
package billing
